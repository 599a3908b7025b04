package main

import (
	"bytes"
	"context"
	"fmt"

	"kyanite/internal/checkpoint"
	"kyanite/internal/db"
)

// dumpSequences prints every stored sequence value by streaming a snapshot
// through the checkpoint codec, so the output matches what a checkpoint
// file would contain.
func dumpSequences(engine *db.DB, regs *registry) {
	var buf bytes.Buffer
	if err := engine.WriteSequences(context.Background(), &buf); err != nil {
		fmt.Printf("dump error: %v\n", err)
		return
	}

	fmt.Printf("%-6s %-20s %20s\n", "ID", "NAME", "VALUE")
	fmt.Println()

	count := 0
	err := checkpoint.Replay(context.Background(), &buf, func(id uint32, value int64) error {
		name := "?"
		if def, ok := regs.byID[id]; ok {
			name = def.Name
		}
		fmt.Printf("%-6d %-20s %20d\n", id, name, value)
		count++
		return nil
	})
	if err != nil {
		fmt.Printf("dump error: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Printf("Total sequences: %d\n", count)
}
