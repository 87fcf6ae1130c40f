package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peterh/liner"

	"github.com/arthursmith001/coresim/internal/sequential"
)

var replCommands = []string{"step", "continue", "registers", "memory", "breakpoint", "quit", "help"}

func completeREPL(line string) []string {
	var out []string
	for _, c := range replCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// runREPL drives a sequential.Interpreter one command at a time: step,
// continue, inspect registers or memory, set breakpoints, or quit.
func runREPL(it *sequential.Interpreter) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(completeREPL)

	printState(it)
	for {
		command, err := line.Prompt("coresim> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			logger.Error("error reading line", "err", err)
			return
		}
		line.AppendHistory(command)

		quit, err := dispatchCommand(it, strings.TrimSpace(command))
		if err != nil {
			fmt.Println("Error: " + err.Error())
		}
		if quit {
			return
		}
	}
}

func dispatchCommand(it *sequential.Interpreter, command string) (quit bool, err error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "s", "step":
		if err := it.Step(); err != nil {
			return false, err
		}
		printState(it)
	case "c", "continue":
		for !it.State.Halted {
			if err := it.Step(); err != nil {
				return false, err
			}
		}
		printState(it)
	case "r", "registers":
		printRegisters(it)
	case "m", "memory":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: memory <hex address>")
		}
		addr, err := parseHex32(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid address: %w", err)
		}
		word, _ := it.State.Fetch(addr)
		fmt.Printf("0x%08x: 0x%08x\n", addr, word)
	case "b", "breakpoint":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: breakpoint <hex address>")
		}
		addr, err := parseHex32(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid address: %w", err)
		}
		it.AddBreakpoint(addr)
		fmt.Printf("Breakpoint set at 0x%08x\n", addr)
	case "q", "quit":
		return true, nil
	case "h", "help":
		fmt.Println("commands: (s)tep (c)ontinue (r)egisters (m)emory <addr> (b)reakpoint <addr> (q)uit")
	default:
		return false, fmt.Errorf("unrecognized command %q", fields[0])
	}
	return false, nil
}

func printState(it *sequential.Interpreter) {
	snap := it.State.Snapshot()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Step %d | PC: 0x%08x | Flags: {Z:%v N:%v C:%v}\n",
		it.StepCount, snap.PC, snap.Flags.Z, snap.Flags.N, snap.Flags.C)
	if snap.StackDepth > 0 {
		fmt.Printf("Stack Top: 0x%08x (Depth: %d)\n", snap.StackTop, snap.StackDepth)
	} else {
		fmt.Println("Stack: Empty")
	}
	if len(it.Log) > 0 {
		fmt.Println("Last instruction:", it.Log[len(it.Log)-1])
	} else {
		fmt.Println("Last instruction: None")
	}
	fmt.Println(strings.Repeat("=", 60))
}

func printRegisters(it *sequential.Interpreter) {
	regs := it.State.Registers
	fmt.Println("Registers:")
	for i := 0; i < len(regs); i += 4 {
		var row []string
		for j := 0; j < 4 && i+j < len(regs); j++ {
			row = append(row, fmt.Sprintf("R%d: 0x%08x", i+j, regs[i+j]))
		}
		fmt.Println(strings.Join(row, "  "))
	}
}
