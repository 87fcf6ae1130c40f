package main

import (
	"fmt"

	"github.com/arthursmith001/coresim/internal/config"
	coresimcore "github.com/arthursmith001/coresim/internal/core"
	"github.com/arthursmith001/coresim/internal/isa"
)

// Memory layout for the matrix multiplication demo, mirroring the
// base addresses used by the thread programs below.
const (
	matrixSize  = 4
	matrixABase = 0x100
	matrixBBase = 0x200
	matrixCBase = 0x300
)

var demoMatrixA = [matrixSize][matrixSize]uint32{
	{1, 2, 3, 4},
	{5, 6, 7, 8},
	{9, 10, 11, 12},
	{13, 14, 15, 16},
}

var demoMatrixB = [matrixSize][matrixSize]uint32{
	{17, 18, 19, 20},
	{21, 22, 23, 24},
	{25, 26, 27, 28},
	{29, 30, 31, 32},
}

// rowProgram builds the instruction stream that computes one row of
// C = A*B against shared memory, for the thread assigned to that row.
// Register usage: R7=matrixSize R8=A_BASE R9=B_BASE R10=C_BASE R15=4
// R0=row R1=column R2=inner index R6=accumulator R3,R4,R5=scratch.
func rowProgram(row int) []uint32 {
	s16 := func(n int) uint16 { return uint16(int16(n)) }

	return []uint32{
		isa.MakeInstruction(isa.OpMOV, 7, 0, 0, uint16(matrixSize)),
		isa.MakeInstruction(isa.OpMOV, 8, 0, 0, uint16(matrixABase)),
		isa.MakeInstruction(isa.OpMOV, 9, 0, 0, uint16(matrixBBase)),
		isa.MakeInstruction(isa.OpMOV, 10, 0, 0, uint16(matrixCBase)),
		isa.MakeInstruction(isa.OpMOV, 15, 0, 0, 4),
		isa.MakeInstruction(isa.OpMOV, 0, 0, 0, uint16(row)),
		isa.MakeInstruction(isa.OpMOV, 1, 0, 0, 0), // j = 0               0x18
		isa.MakeInstruction(isa.OpCMP, 0, 1, 7, 0), // column_loop: 0x1C
		isa.MakeInstruction(isa.OpBEQ, 0, 0, 0, s16(0x98-0x20)),
		isa.MakeInstruction(isa.OpMOV, 6, 0, 0, 0), // sum = 0
		isa.MakeInstruction(isa.OpMOV, 2, 0, 0, 0), // k = 0               0x28
		isa.MakeInstruction(isa.OpCMP, 0, 2, 7, 0), // inner_loop: 0x2C
		isa.MakeInstruction(isa.OpBEQ, 0, 0, 0, s16(0x74-0x30)),
		isa.MakeInstruction(isa.OpMUL, 3, 0, 7, 0), // R3 = row * size
		isa.MakeInstruction(isa.OpADD, 3, 3, 2, 0), // R3 += k
		isa.MakeInstruction(isa.OpMUL, 3, 3, 15, 0),
		isa.MakeInstruction(isa.OpADD, 3, 3, 8, 0), // R3 = &A[row][k]
		isa.MakeInstruction(isa.OpLOAD, 4, 3, 0, 0),
		isa.MakeInstruction(isa.OpMUL, 3, 2, 7, 0), // R3 = k * size
		isa.MakeInstruction(isa.OpADD, 3, 3, 1, 0), // R3 += j
		isa.MakeInstruction(isa.OpMUL, 3, 3, 15, 0),
		isa.MakeInstruction(isa.OpADD, 3, 3, 9, 0), // R3 = &B[k][j]
		isa.MakeInstruction(isa.OpLOAD, 5, 3, 0, 0),
		isa.MakeInstruction(isa.OpMUL, 3, 4, 5, 0), // R3 = A[row][k]*B[k][j]
		isa.MakeInstruction(isa.OpADD, 6, 6, 3, 0), // sum += R3
		isa.MakeInstruction(isa.OpMOV, 3, 0, 0, 1),
		isa.MakeInstruction(isa.OpADD, 2, 2, 3, 0), // k++
		isa.MakeInstruction(isa.OpCMP, 0, 0, 0, 0), // forced Z
		isa.MakeInstruction(isa.OpBEQ, 0, 0, 0, s16(0x2C-0x70)),
		isa.MakeInstruction(isa.OpMUL, 3, 0, 7, 0), // store_result: 0x74
		isa.MakeInstruction(isa.OpADD, 3, 3, 1, 0),
		isa.MakeInstruction(isa.OpMUL, 3, 3, 15, 0),
		isa.MakeInstruction(isa.OpADD, 3, 3, 10, 0), // R3 = &C[row][j]
		isa.MakeInstruction(isa.OpStore, 0, 3, 6, 0),
		isa.MakeInstruction(isa.OpMOV, 3, 0, 0, 1),
		isa.MakeInstruction(isa.OpADD, 1, 1, 3, 0), // j++
		isa.MakeInstruction(isa.OpCMP, 0, 0, 0, 0), // forced Z
		isa.MakeInstruction(isa.OpBEQ, 0, 0, 0, s16(0x1C-0x94)),
		isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0), // end: 0x98
	}
}

// runMatrixDemo loads one row-multiplication program per thread (idle
// threads beyond matrixSize just halt immediately) onto a Simulation
// sized from cfg, runs it to completion, and prints the resulting matrix.
func runMatrixDemo(cfg config.Config, maxCycles int) {
	sim := coresimcore.New(cfg.Cores, cfg.ThreadsPerCore, cfg.MemorySize, cfg.CacheCapacity, logger)
	sim.Memory.EnableStats(cfg.Stats)

	for i := 0; i < matrixSize; i++ {
		for j := 0; j < matrixSize; j++ {
			sim.Memory.Write(uint32(matrixABase+(i*matrixSize+j)*4), demoMatrixA[i][j])
			sim.Memory.Write(uint32(matrixBBase+(i*matrixSize+j)*4), demoMatrixB[i][j])
			sim.Memory.Write(uint32(matrixCBase+(i*matrixSize+j)*4), 0)
		}
	}

	globalThread := 0
	for coreID := 0; coreID < cfg.Cores; coreID++ {
		for threadID := 0; threadID < cfg.ThreadsPerCore; threadID++ {
			if globalThread < matrixSize {
				sim.LoadProgram(coreID, threadID, rowProgram(globalThread), 0)
			} else {
				sim.LoadProgram(coreID, threadID, []uint32{isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0)}, 0)
			}
			globalThread++
		}
	}

	sim.Run(maxCycles)

	logger.Info("matrix demo finished", "all_halted", sim.AllHalted())
	for i := 0; i < matrixSize; i++ {
		row := make([]uint32, matrixSize)
		for j := 0; j < matrixSize; j++ {
			row[j] = sim.Memory.Read(uint32(matrixCBase + (i*matrixSize+j)*4))
		}
		fmt.Printf("C[%d] = %v\n", i, row)
	}
	if cfg.Stats {
		sim.Memory.PrintStats()
	}
}
