package main

import (
	"context"
	"fmt"
	"os"

	"kyanite/internal/checkpoint"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file.checkpoint>\n", os.Args[0])
		os.Exit(1)
	}

	path := os.Args[1]
	fmt.Printf("Inspecting checkpoint: %s\n", path)
	fmt.Println()

	log, err := checkpoint.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open checkpoint: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	iter, err := log.Iterator(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create iterator: %v\n", err)
		os.Exit(1)
	}
	defer iter.Close()

	count := 0
	for {
		id, value, ok, err := iter.Next()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading record: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			break
		}
		fmt.Printf("sequence %d: value=%d\n", id, value)
		count++
	}

	fmt.Println()
	fmt.Printf("Total records: %d\n", count)
}
