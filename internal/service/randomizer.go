package service

import "math/rand/v2"

// Randomizer supplies the randomness used when decorating bug tasks.
// Injecting it keeps generated card titles and member assignment
// deterministic in tests.
type Randomizer interface {
	// Word returns a random lowercase word.
	Word() string

	// Intn returns a non-negative random number strictly less than n.
	Intn(n int) int
}

// bugWords is the pool used for generated bug titles.
var bugWords = []string{
	"falcon", "dragon", "merlin", "raptor", "booster", "fairing",
	"stage", "grid", "thrust", "orbit", "apogee", "perigee",
	"telemetry", "gimbal", "nozzle", "turbopump", "manifold", "valve",
}

type defaultRandomizer struct{}

// NewRandomizer returns a Randomizer backed by math/rand.
func NewRandomizer() Randomizer {
	return defaultRandomizer{}
}

func (defaultRandomizer) Word() string {
	return bugWords[rand.IntN(len(bugWords))]
}

func (defaultRandomizer) Intn(n int) int {
	return rand.IntN(n)
}
