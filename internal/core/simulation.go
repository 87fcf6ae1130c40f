/*
   Core simulation loop.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package core implements the multi-core, multi-thread substrate: a Core
// owns a fixed set of pipelined threads scheduled round-robin, and a
// Simulation runs several cores in parallel over one shared memory
// controller.
package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arthursmith001/coresim/internal/memory"
	"github.com/arthursmith001/coresim/internal/pipeline"
	"github.com/arthursmith001/coresim/internal/simlog"
)

// Core owns NumThreads pipelined threads sharing one memory controller.
type Core struct {
	ID      int
	Threads []*pipeline.Thread

	log *slog.Logger

	mu        sync.Mutex
	activeIdx int
}

// NewCore builds a Core with numThreads pipelined threads, all routing
// memory access through mem. Every log record emitted for this core is
// tagged with its ID via simlog.WithComponent, so a multi-core Run's
// interleaved goroutine output stays attributable.
func NewCore(id, numThreads int, mem *memory.Controller, log *slog.Logger) *Core {
	if log == nil {
		log = slog.Default()
	}
	c := &Core{ID: id, log: log}
	for i := 0; i < numThreads; i++ {
		c.Threads = append(c.Threads, pipeline.NewThread(mem))
	}
	return c
}

// LoadProgram delegates to the named thread's LoadProgram.
func (c *Core) LoadProgram(threadID int, words []uint32, startAddr uint32) bool {
	if threadID < 0 || threadID >= len(c.Threads) {
		return false
	}
	return c.Threads[threadID].LoadProgram(words, startAddr)
}

// Cycle performs one round-robin scheduling decision, per §4.5: if the
// active thread is halted, advance the index; if the thread at the new
// index is also halted, the core is idle and Cycle returns false.
// Otherwise the active thread takes one pipeline step and Cycle returns
// true.
func (c *Core) Cycle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.Threads) == 0 {
		return false
	}
	threadIdx := c.activeIdx
	thread := c.Threads[threadIdx]
	if thread.State.Halted {
		threadIdx = (threadIdx + 1) % len(c.Threads)
		c.activeIdx = threadIdx
		thread = c.Threads[threadIdx]
		if thread.State.Halted {
			return false
		}
	}
	thread.Step()
	if thread.LastErr != nil {
		thread.State.Halted = true
		ctx := simlog.WithComponent(context.Background(), c.ID, threadIdx)
		c.log.ErrorContext(ctx, "thread step failed", "err", thread.LastErr)
	}
	return true
}

// AllHalted reports whether every thread on this core has halted.
func (c *Core) AllHalted() bool {
	for _, t := range c.Threads {
		if !t.State.Halted {
			return false
		}
	}
	return true
}

// Run drives Cycle until the core goes idle or maxCycles is reached.
func (c *Core) Run(maxCycles int) {
	for cycle := 0; cycle < maxCycles; cycle++ {
		if !c.Cycle() {
			return
		}
	}
}

// Simulation owns the shared memory controller and every core. Cores run
// concurrently, one goroutine each, the way the teacher's core.Start ran
// its CPU loop on a dedicated goroutine coordinated by a WaitGroup and a
// done channel.
type Simulation struct {
	Memory *memory.Controller
	Cores  []*Core

	log  *slog.Logger
	wg   sync.WaitGroup
	done chan struct{}
}

// New builds a Simulation with numCores cores of numThreads threads each,
// sharing one memory controller of the given size and cache capacity.
func New(numCores, numThreads, memSize, cacheCap int, log *slog.Logger) *Simulation {
	if log == nil {
		log = slog.Default()
	}
	mem := memory.New(memSize, cacheCap, log)
	sim := &Simulation{Memory: mem, log: log, done: make(chan struct{})}
	for i := 0; i < numCores; i++ {
		sim.Cores = append(sim.Cores, NewCore(i, numThreads, mem, log))
	}
	return sim
}

// LoadProgram loads words into the given core/thread.
func (s *Simulation) LoadProgram(coreID, threadID int, words []uint32, startAddr uint32) bool {
	if coreID < 0 || coreID >= len(s.Cores) {
		return false
	}
	return s.Cores[coreID].LoadProgram(threadID, words, startAddr)
}

// AllHalted reports whether every thread of every core has halted.
func (s *Simulation) AllHalted() bool {
	for _, c := range s.Cores {
		if !c.AllHalted() {
			return false
		}
	}
	return true
}

// Run starts every core on its own goroutine and blocks until all cores
// have gone idle (or maxCyclesPerCore is reached on each), or Stop is
// called. It mirrors the teacher's Start/Stop shape: a WaitGroup tracks
// worker completion and a done channel requests early termination.
func (s *Simulation) Run(maxCyclesPerCore int) {
	for _, c := range s.Cores {
		s.wg.Add(1)
		go func(c *Core) {
			defer s.wg.Done()
			for cycle := 0; cycle < maxCyclesPerCore; cycle++ {
				select {
				case <-s.done:
					return
				default:
				}
				if !c.Cycle() {
					ctx := simlog.WithComponent(context.Background(), c.ID, -1)
					s.log.InfoContext(ctx, "core idle", "cycle", cycle)
					return
				}
			}
		}(c)
	}
	s.wg.Wait()
	s.log.Info("simulation complete", "cores", len(s.Cores), "all_halted", s.AllHalted())
}

// Stop requests early termination of a Run in progress and waits for the
// core workers to observe it, or up to one second.
func (s *Simulation) Stop() {
	close(s.done)
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		s.log.Warn("timed out waiting for cores to stop")
	}
}
