/*
 * coresim - Main process.
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

// Command coresim drives the sequential, pipelined, or multi-core
// substrates from the command line. It is a thin external collaborator:
// all simulation semantics live under internal/.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/arthursmith001/coresim/internal/config"
	"github.com/arthursmith001/coresim/internal/sequential"
	"github.com/arthursmith001/coresim/internal/simlog"
)

var logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optMode := getopt.StringLong("mode", 'm', "sequential", "Substrate: sequential|pipeline|multicore")
	optMemorySize := getopt.StringLong("memory-size", 0, "", "Memory size in words")
	optCores := getopt.StringLong("cores", 0, "", "Number of cores (multicore mode)")
	optThreads := getopt.StringLong("threads", 0, "", "Threads per core (multicore mode)")
	optCache := getopt.StringLong("cache", 0, "", "Cache capacity")
	optStats := getopt.BoolLong("stats", 0, "Enable memory controller statistics")
	optDebug := getopt.StringLong("debug", 0, "", "Debug level: off|basic|detailed|verbose")
	optProgram := getopt.StringLong("program", 'p', "", "Program file: one hex instruction word per line")
	optStart := getopt.StringLong("start", 0, "0", "Start address (hex)")
	optMaxSteps := getopt.StringLong("max-steps", 0, "1000", "Maximum steps or cycles")
	optInteractive := getopt.BoolLong("interactive", 'i', "Enable interactive breakpoint debugger")
	optMatrixDemo := getopt.BoolLong("matrix-demo", 0, "Run the matrix multiplication demo (multicore mode)")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logSink io.Writer
	if *optLogFile != "" {
		logFile, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot open log file:", err)
			os.Exit(1)
		}
		logSink = logFile
	}

	cfg := config.Default()
	if *optConfig != "" {
		if err := config.Load(*optConfig, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
	}
	applyFlagOverrides(&cfg, *optMemorySize, *optCores, *optThreads, *optCache, *optStats, *optDebug)

	logger = simlog.New(logSink, slogLevelFor(cfg.Debug), cfg.Debug != config.DebugOff)
	slog.SetDefault(logger)
	logger.Info("coresim started", "mode", *optMode)

	startAddr, err := parseHex32(*optStart)
	if err != nil {
		logger.Error("invalid start address", "value", *optStart, "err", err)
		os.Exit(1)
	}
	maxSteps, err := strconv.Atoi(*optMaxSteps)
	if err != nil {
		logger.Error("invalid max-steps", "value", *optMaxSteps, "err", err)
		os.Exit(1)
	}

	var words []uint32
	if *optProgram != "" {
		words, err = loadProgramFile(*optProgram)
		if err != nil {
			logger.Error("cannot load program", "file", *optProgram, "err", err)
			os.Exit(1)
		}
	}

	switch *optMode {
	case "sequential":
		runSequential(words, startAddr, maxSteps, *optInteractive)
	case "pipeline":
		runPipeline(words, startAddr, maxSteps, cfg)
	case "multicore":
		if *optMatrixDemo {
			runMatrixDemo(cfg, maxSteps)
		} else {
			runMulticore(words, startAddr, maxSteps, cfg)
		}
	default:
		logger.Error("unknown mode", "mode", *optMode)
		os.Exit(1)
	}

	logger.Info("coresim finished")
}

func applyFlagOverrides(cfg *config.Config, memSize, cores, threads, cache string, stats bool, debug string) {
	if memSize != "" {
		if n, err := strconv.Atoi(memSize); err == nil {
			cfg.MemorySize = n
		}
	}
	if cores != "" {
		if n, err := strconv.Atoi(cores); err == nil {
			cfg.Cores = n
		}
	}
	if threads != "" {
		if n, err := strconv.Atoi(threads); err == nil {
			cfg.ThreadsPerCore = n
		}
	}
	if cache != "" {
		if n, err := strconv.Atoi(cache); err == nil {
			cfg.CacheCapacity = n
		}
	}
	if stats {
		cfg.Stats = true
	}
	if debug != "" {
		cfg.Debug = config.DebugLevel(strings.ToLower(debug))
	}
}

func slogLevelFor(level config.DebugLevel) slog.Level {
	switch level {
	case config.DebugVerbose, config.DebugDetailed:
		return slog.LevelDebug
	case config.DebugBasic:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func parseHex32(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// loadProgramFile reads one hex-encoded 32-bit instruction word per line,
// skipping blank lines and '#' comments, matching the configuration
// file's comment convention.
func loadProgramFile(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []uint32
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, err := parseHex32(line)
		if err != nil {
			return nil, fmt.Errorf("malformed instruction %q: %w", line, err)
		}
		words = append(words, word)
	}
	return words, scanner.Err()
}

func runSequential(words []uint32, startAddr uint32, maxSteps int, interactive bool) {
	it := sequential.New()
	it.LoadProgram(words, startAddr)

	if interactive {
		runREPL(it)
		return
	}

	if err := it.Run(startAddr, maxSteps); err != nil {
		logger.Error("run stopped", "err", err)
	}
	snap := it.State.Snapshot()
	logger.Info("final state", "pc", fmt.Sprintf("0x%08x", snap.PC), "halted", snap.Halted)
	for i, reg := range snap.Registers {
		if reg != 0 {
			logger.Debug("register", "reg", i, "value", fmt.Sprintf("0x%08x", reg))
		}
	}
}
