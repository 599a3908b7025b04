package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"kyanite/internal/common"
	"kyanite/internal/db"
	"kyanite/internal/sequence"
)

// demoDefinitions is the schema the shell operates on: a spread of
// ascending, descending, stepped and cycling sequences.
var demoDefinitions = []*sequence.Definition{
	{ID: 1, Name: "users", Start: 1, Min: 1, Max: math.MaxInt64, Step: 1},
	{ID: 2, Name: "orders", Start: 1000, Min: 1000, Max: math.MaxInt64, Step: 10},
	{ID: 3, Name: "tickets", Start: 1, Min: 1, Max: 50, Step: 1, Cycle: true},
	{ID: 4, Name: "countdown", Start: 100, Min: 0, Max: 100, Step: -1},
	{ID: 5, Name: "shards", Start: 0, Min: 0, Max: 7, Step: 1, Cycle: true},
}

func runSeed(engine *db.DB, regs *registry, x int) {
	start := time.Now()
	count := 0

	// Randomize the order for a less uniform workload.
	shuffled := make([]string, len(regs.order))
	copy(shuffled, regs.order)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for i := 0; i < x; i++ {
		for _, name := range shuffled {
			def := regs.byName[name]
			if _, err := engine.Sequences().Next(def); err != nil {
				fmt.Printf("seed error on %s: %v\n", name, err)
				continue
			}
			count++
		}
	}

	avgPerCall := time.Since(start) / time.Duration(count)
	common.LogDuration(start, "seeded %d values (%d * %d) - %v/call",
		count, len(shuffled), x, avgPerCall)
}
