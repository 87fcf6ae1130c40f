// Package memory implements the shared, cache-augmented memory controller
// that pipelined threads route their LOAD/STORE traffic through.
package memory

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/arthursmith001/coresim/internal/simerr"
)

const (
	// DefaultSize is the default backing-array capacity in words.
	DefaultSize = 1024
	// DefaultCacheCapacity is the default bounded-cache entry count.
	DefaultCacheCapacity = 64
	numSegments          = 16
	segmentSpan          = 64
)

// Controller is the sole owner of the backing array; cores and threads
// never hold a raw reference into it and only ever call Read/Write/BulkLoad.
type Controller struct {
	backing []uint32

	readLocks [numSegments]sync.Mutex
	writeLock sync.Mutex

	cacheLock    sync.Mutex
	cache        map[uint32]uint32
	cacheOrder   []uint32 // insertion order, for deterministic FIFO eviction
	cacheCap     int

	statsEnabled bool
	reads        uint64
	writes       uint64
	cacheHits    uint64

	log *slog.Logger
}

// New returns a Controller with a backing array of size words and a cache
// bounded to cacheCap entries.
func New(size, cacheCap int, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		backing:  make([]uint32, size),
		cache:    make(map[uint32]uint32, cacheCap),
		cacheCap: cacheCap,
		log:      log,
	}
}

func segmentFor(addr uint32) int {
	return int((addr / segmentSpan) % numSegments)
}

// InRange reports whether addr falls within the backing array, satisfying
// pipeline.Fetcher's bounds check for the pipelined substrate's fetch.
func (c *Controller) InRange(addr uint32) bool {
	return int(addr) < len(c.backing)
}

// Read returns the word at addr, checking the cache before falling back to
// a segment-locked read of the backing array. Out-of-range addresses read
// as zero.
func (c *Controller) Read(addr uint32) uint32 {
	c.cacheLock.Lock()
	if v, ok := c.cache[addr]; ok {
		if c.statsEnabled {
			c.cacheHits++
			c.reads++
		}
		c.cacheLock.Unlock()
		return v
	}
	c.cacheLock.Unlock()

	seg := segmentFor(addr)
	c.readLocks[seg].Lock()
	defer c.readLocks[seg].Unlock()

	if int(addr) >= len(c.backing) {
		return 0
	}
	value := c.backing[addr]
	c.insertCache(addr, value)
	if c.statsEnabled {
		c.reads++
	}
	return value
}

// insertCache stores value for addr, evicting the oldest entry in
// insertion order when the cache is at capacity.
func (c *Controller) insertCache(addr, value uint32) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	if _, exists := c.cache[addr]; !exists && len(c.cache) >= c.cacheCap && c.cacheCap > 0 {
		oldest := c.cacheOrder[0]
		c.cacheOrder = c.cacheOrder[1:]
		delete(c.cache, oldest)
	}
	if _, exists := c.cache[addr]; !exists {
		c.cacheOrder = append(c.cacheOrder, addr)
	}
	c.cache[addr] = value
}

// Write stores word at addr under the global write lock, also holding addr's
// segment lock while it touches the backing array so a concurrent Read can
// never observe the backing array mid-write: Read takes the segment lock on
// its cache-miss path, and without Write taking the same lock the two could
// race on an address that isn't cached yet.
func (c *Controller) Write(addr uint32, word uint32) bool {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if int(addr) >= len(c.backing) {
		return false
	}
	seg := segmentFor(addr)
	c.readLocks[seg].Lock()
	c.backing[addr] = word
	c.readLocks[seg].Unlock()

	c.insertCache(addr, word)
	if c.statsEnabled {
		c.writes++
	}
	return true
}

// BulkLoad writes words to consecutive addresses starting at startAddr
// under the global write lock, holding every segment lock for the duration
// so a concurrent Read can never race the backing-array writes regardless
// of which segment its address falls in. It fails with ErrMemoryOutOfRange,
// leaving the backing array untouched, if the sequence would not fit.
func (c *Controller) BulkLoad(words []uint32, startAddr uint32) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	span := uint64(startAddr) + uint64(len(words))*4
	if span > uint64(len(c.backing)) {
		return fmt.Errorf("%w: start=0x%x len=%d size=%d", simerr.ErrMemoryOutOfRange, startAddr, len(words), len(c.backing))
	}
	for i := range c.readLocks {
		c.readLocks[i].Lock()
	}
	for i, word := range words {
		addr := startAddr + uint32(i)*4
		c.backing[addr] = word
	}
	for i := range c.readLocks {
		c.readLocks[i].Unlock()
	}
	for i, word := range words {
		addr := startAddr + uint32(i)*4
		c.insertCache(addr, word)
	}
	if c.statsEnabled {
		c.writes += uint64(len(words))
	}
	return nil
}

// FlushCache discards every cached entry.
func (c *Controller) FlushCache() {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	c.cache = make(map[uint32]uint32, c.cacheCap)
	c.cacheOrder = nil
}

// EnableStats turns access counting on or off. Disabling resets counters.
func (c *Controller) EnableStats(enabled bool) {
	c.statsEnabled = enabled
	if !enabled {
		c.reads, c.writes, c.cacheHits = 0, 0, 0
	}
}

// Stats is a telemetry snapshot, valid whether or not stats are enabled.
type Stats struct {
	Reads     uint64
	Writes    uint64
	CacheHits uint64
}

// PrintStats logs the current counters. It is a no-op when stats are
// disabled, matching the reference's telemetry-only behaviour.
func (c *Controller) PrintStats() {
	if !c.statsEnabled {
		return
	}
	var hitRate float64
	if c.reads > 0 {
		hitRate = float64(c.cacheHits) / float64(c.reads) * 100
	}
	c.log.Info("memory controller statistics",
		"reads", c.reads, "writes", c.writes, "cache_hits", c.cacheHits,
		"hit_rate_pct", fmt.Sprintf("%.2f", hitRate))
}

// StatsSnapshot returns the current counters regardless of whether stats
// collection is enabled.
func (c *Controller) StatsSnapshot() Stats {
	return Stats{Reads: c.reads, Writes: c.writes, CacheHits: c.cacheHits}
}
