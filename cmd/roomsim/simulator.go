package main

import (
	"math"
	"math/rand"

	"github.com/luki/roomtemps/internal/reading"
)

const minEnvironment = 15.0

type room struct {
	id         string
	base       float64
	references []float64
	refIndex   int
}

func defaultRooms() []*room {
	return []*room{
		{id: "101", base: 22.0, references: []float64{24.0, 25.5, 23.0, 26.0, 22.5}},
		{id: "102", base: 20.0, references: []float64{22.0, 23.5, 21.5, 24.0}},
	}
}

type emission struct {
	room     string
	category reading.Category
	value    float64
}

// simulator produces one batch of readings per cycle. Every fifth cycle
// (starting with the first) moves each room to its next reference; every
// eighth cycle exceeds the reference and every sixth hovers around it.
type simulator struct {
	rooms []*room
	rng   *rand.Rand
	cycle int
}

func newSimulator(rooms []*room, rng *rand.Rand) *simulator {
	return &simulator{rooms: rooms, rng: rng}
}

func (s *simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *simulator) step() []emission {
	s.cycle++

	var out []emission
	for _, r := range s.rooms {
		if s.cycle%5 == 1 {
			r.refIndex = (r.refIndex + 1) % len(r.references)
			out = append(out, emission{r.id, reading.Reference, r.references[r.refIndex]})
		}

		ref := r.references[r.refIndex]
		var env float64
		switch {
		case s.cycle%8 == 0:
			env = ref + s.uniform(0.5, 2.0)
		case s.cycle%6 == 0:
			env = ref + s.uniform(-0.2, 0.2)
		default:
			env = r.base + s.uniform(-1.5, 1.5)
		}
		env = math.Max(minEnvironment, env)
		out = append(out, emission{r.id, reading.Environment, math.Round(env*10) / 10})
	}
	return out
}
