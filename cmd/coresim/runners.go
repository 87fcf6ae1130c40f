package main

import (
	"fmt"

	"github.com/arthursmith001/coresim/internal/config"
	"github.com/arthursmith001/coresim/internal/cpustate"
	coresimcore "github.com/arthursmith001/coresim/internal/core"
	"github.com/arthursmith001/coresim/internal/pipeline"
)

// runPipeline drives a single standalone pipelined thread over its own
// private memory, printing a cycle-by-cycle trace until it drains.
func runPipeline(words []uint32, startAddr uint32, maxCycles int, cfg config.Config) {
	state := cpustate.New()
	thread := &pipeline.Thread{State: state, Mem: state}
	thread.LoadProgram(words, startAddr)
	thread.State.PC = startAddr

	for cycle := 0; cycle < maxCycles && !thread.Done(); cycle++ {
		thread.Step()
		fmt.Println(thread.String())
	}
	for _, line := range thread.Log {
		logger.Debug(line)
	}
	if thread.LastErr != nil {
		logger.Error("pipeline run stopped", "err", thread.LastErr)
	}
	logger.Info("pipeline run finished", "cycles", thread.StepCount, "halted", thread.State.Halted)
}

// runMulticore loads the given program onto thread 0 of core 0 of a full
// Simulation sized from cfg, runs every core to completion, and reports
// every thread's final PC and halted bit.
func runMulticore(words []uint32, startAddr uint32, maxCycles int, cfg config.Config) {
	sim := coresimcore.New(cfg.Cores, cfg.ThreadsPerCore, cfg.MemorySize, cfg.CacheCapacity, logger)
	sim.Memory.EnableStats(cfg.Stats)
	sim.LoadProgram(0, 0, words, startAddr)

	sim.Run(maxCycles)

	for _, c := range sim.Cores {
		for i, t := range c.Threads {
			snap := t.State.Snapshot()
			logger.Info("thread finished", "core", c.ID, "thread", i,
				"pc", fmt.Sprintf("0x%08x", snap.PC), "halted", snap.Halted)
		}
	}
	if cfg.Stats {
		sim.Memory.PrintStats()
	}
}
