package main

import (
	"math/rand"
	"testing"

	"github.com/luki/roomtemps/internal/reading"
)

func TestSimulatorCycles(t *testing.T) {
	sim := newSimulator(defaultRooms(), rand.New(rand.NewSource(1)))

	for cycle := 1; cycle <= 40; cycle++ {
		batch := sim.step()

		refs := 0
		for _, e := range batch {
			switch e.category {
			case reading.Reference:
				refs++
			case reading.Environment:
				if e.value < minEnvironment {
					t.Errorf("cycle %d room %s: %v below the floor", cycle, e.room, e.value)
				}
			}
		}

		wantRefs := 0
		if cycle%5 == 1 {
			wantRefs = len(sim.rooms)
		}
		if refs != wantRefs {
			t.Errorf("cycle %d: got %d reference readings, want %d", cycle, refs, wantRefs)
		}
		if len(batch) != len(sim.rooms)+wantRefs {
			t.Errorf("cycle %d: got %d readings", cycle, len(batch))
		}
	}
}

func TestSimulatorAlertCycle(t *testing.T) {
	sim := newSimulator(defaultRooms(), rand.New(rand.NewSource(7)))
	var batch []emission
	for i := 0; i < 8; i++ {
		batch = sim.step()
	}

	for _, e := range batch {
		var r *room
		for _, candidate := range sim.rooms {
			if candidate.id == e.room {
				r = candidate
			}
		}
		ref := r.references[r.refIndex]
		if e.value <= ref {
			t.Errorf("cycle 8 room %s: %v should exceed reference %v", e.room, e.value, ref)
		}
	}
}
