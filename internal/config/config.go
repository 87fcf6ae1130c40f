/*
 * coresim - Configuration file parser
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package config parses the simulator's configuration file: one directive
// per line, '#' starts a comment, blank lines are skipped.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DebugLevel is one of the four recognized debug verbosities.
type DebugLevel string

const (
	DebugOff      DebugLevel = "off"
	DebugBasic    DebugLevel = "basic"
	DebugDetailed DebugLevel = "detailed"
	DebugVerbose  DebugLevel = "verbose"
)

// Config holds every recognized knob, at its documented default until
// overridden by a config file directive or a command-line flag.
type Config struct {
	MemorySize     int
	Cores          int
	ThreadsPerCore int
	CacheCapacity  int
	Stats          bool
	Debug          DebugLevel
}

// Default returns a Config at the documented defaults.
func Default() Config {
	return Config{
		MemorySize:     1024,
		Cores:          2,
		ThreadsPerCore: 2,
		CacheCapacity:  64,
		Stats:          false,
		Debug:          DebugOff,
	}
}

var validDebugLevels = map[string]DebugLevel{
	"off": DebugOff, "basic": DebugBasic, "detailed": DebugDetailed, "verbose": DebugVerbose,
}

// Load reads directives from name into cfg, starting from cfg's current
// values so callers can seed defaults first. Unknown directives or
// malformed values are rejected with a parse error that names the file
// and line number, matching the teacher's configparser convention.
func Load(name string, cfg *Config) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNumber := 0
	for {
		raw, err := reader.ReadString('\n')
		lineNumber++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if parseErr := applyLine(cfg, raw); parseErr != nil {
			return fmt.Errorf("%s:%d: %w", name, lineNumber, parseErr)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func applyLine(cfg *Config, raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("malformed directive %q", line)
	}
	key, value := fields[0], strings.Join(fields[1:], " ")

	switch key {
	case "memory_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("memory_size: %w", err)
		}
		cfg.MemorySize = n
	case "cores":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("cores: %w", err)
		}
		cfg.Cores = n
	case "threads_per_core":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("threads_per_core: %w", err)
		}
		cfg.ThreadsPerCore = n
	case "cache_capacity":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("cache_capacity: %w", err)
		}
		cfg.CacheCapacity = n
	case "stats":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		cfg.Stats = b
	case "debug":
		level, ok := validDebugLevels[strings.ToLower(value)]
		if !ok {
			return fmt.Errorf("debug: unrecognized level %q", value)
		}
		cfg.Debug = level
	default:
		return fmt.Errorf("unknown directive %q", key)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected on/off, got %q", value)
	}
}
