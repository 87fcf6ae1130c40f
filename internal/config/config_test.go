/*
 * coresim - Configuration file parser test set.
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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "coresim.conf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
# a comment line
memory_size 2048
cores 4
threads_per_core 1
cache_capacity 128
stats on
debug detailed
`)
	cfg := Default()
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Config{
		MemorySize:     2048,
		Cores:          4,
		ThreadsPerCore: 1,
		CacheCapacity:  128,
		Stats:          true,
		Debug:          DebugDetailed,
	}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadLeavesUnmentionedKnobsAtDefault(t *testing.T) {
	path := writeTempConfig(t, "cores 8\n")
	cfg := Default()
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cores != 8 {
		t.Fatalf("Cores = %d, want 8", cfg.Cores)
	}
	if cfg.MemorySize != 1024 {
		t.Fatalf("MemorySize should remain default, got %d", cfg.MemorySize)
	}
}

func TestLoadRejectsUnknownDirective(t *testing.T) {
	path := writeTempConfig(t, "bogus_knob 1\n")
	cfg := Default()
	if err := Load(path, &cfg); err == nil {
		t.Fatalf("expected error for unknown directive")
	}
}

func TestLoadRejectsMalformedInteger(t *testing.T) {
	path := writeTempConfig(t, "cores not-a-number\n")
	cfg := Default()
	if err := Load(path, &cfg); err == nil {
		t.Fatalf("expected error for malformed integer")
	}
}

func TestLoadRejectsUnrecognizedDebugLevel(t *testing.T) {
	path := writeTempConfig(t, "debug extreme\n")
	cfg := Default()
	if err := Load(path, &cfg); err == nil {
		t.Fatalf("expected error for unrecognized debug level")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg := Default()
	if err := Load(filepath.Join(t.TempDir(), "missing.conf"), &cfg); err == nil {
		t.Fatalf("expected error opening missing file")
	}
}
