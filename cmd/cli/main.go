package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"kyanite/internal/db"
	"kyanite/internal/sequence"
)

// registry is the demo schema: the sequences the shell can talk about.
type registry struct {
	order  []string
	byName map[string]*sequence.Definition
	byID   map[uint32]*sequence.Definition
}

func newRegistry(defs []*sequence.Definition) *registry {
	r := &registry{
		byName: make(map[string]*sequence.Definition),
		byID:   make(map[uint32]*sequence.Definition),
	}
	for _, def := range defs {
		r.order = append(r.order, def.Name)
		r.byName[def.Name] = def
		r.byID[def.ID] = def
	}
	return r
}

func (r *registry) lookup(id uint32) (*sequence.Definition, bool) {
	def, ok := r.byID[id]
	return def, ok
}

func main() {
	checkpointPath := "kyanite.checkpoint"

	engine, err := db.Open(db.WithCheckpointPath(checkpointPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	regs := newRegistry(demoDefinitions)

	fmt.Println("kyn - kyanite sequence shell")
	fmt.Printf("config: checkpoint=%s sequences=%d\n", checkpointPath, len(regs.order))
	fmt.Println("commands: next <seq> | get <seq> | set <seq> <value> | reset <seq> | seed <x> | dump | checkpoint | recover | history [n] | exit")

	hist, err := newHistory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		hist = &History{}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		hist.add(line)

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "exit", "quit":
			if err := hist.save(); err != nil {
				fmt.Printf("warning: failed to save history: %v\n", err)
			}
			return

		case "next":
			withDef(regs, args, func(def *sequence.Definition) {
				v, err := engine.Sequences().Next(def)
				if err != nil {
					fmt.Printf("next error: %v\n", err)
					return
				}
				fmt.Printf("%s = %d\n", def.Name, v)
			})

		case "get":
			withDef(regs, args, func(def *sequence.Definition) {
				v, ok := engine.Sequences().Get(def)
				if !ok {
					fmt.Printf("%s has not been used yet\n", def.Name)
					return
				}
				fmt.Printf("%s = %d\n", def.Name, v)
			})

		case "set":
			if len(args) != 2 {
				fmt.Println("usage: set <seq> <value>")
				continue
			}
			def, ok := regs.byName[args[0]]
			if !ok {
				fmt.Printf("unknown sequence: %s\n", args[0])
				continue
			}
			v, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				fmt.Printf("bad value: %v\n", err)
				continue
			}
			if err := engine.Sequences().Set(def, v); err != nil {
				fmt.Printf("set error: %v\n", err)
			}

		case "reset":
			withDef(regs, args, func(def *sequence.Definition) {
				engine.Sequences().Reset(def)
			})

		case "seed":
			if len(args) != 1 {
				fmt.Println("usage: seed <x>")
				continue
			}
			x, err := strconv.Atoi(args[0])
			if err != nil || x < 1 {
				fmt.Println("seed count must be a positive integer")
				continue
			}
			runSeed(engine, regs, x)

		case "dump":
			dumpSequences(engine, regs)

		case "checkpoint":
			if err := engine.CheckpointSequences(context.Background()); err != nil {
				fmt.Printf("checkpoint error: %v\n", err)
			}

		case "recover":
			if err := engine.RecoverSequences(context.Background(), regs.lookup); err != nil {
				fmt.Printf("recover error: %v\n", err)
			}

		case "history":
			n := 0
			if len(args) == 1 {
				n, _ = strconv.Atoi(args[0])
			}
			for _, cmd := range hist.list(n) {
				fmt.Println(cmd)
			}

		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func withDef(regs *registry, args []string, fn func(*sequence.Definition)) {
	if len(args) != 1 {
		fmt.Println("usage: <command> <seq>")
		return
	}
	def, ok := regs.byName[args[0]]
	if !ok {
		fmt.Printf("unknown sequence: %s\n", args[0])
		return
	}
	fn(def)
}
