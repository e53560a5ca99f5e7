// Package generator builds randomized trial stimuli.
package generator

import (
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/cuetask/internal/model"
)

// Placeholder stands in for a neutral flanker pair.
const Placeholder = "[][]"

// Hidden marks the target position before the target is revealed.
const Hidden = "_"

// Generator produces randomized trial specifications.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a Generator with a fixed seed.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate draws target and distractor uniformly with replacement from keys
// and lays them out on a randomly chosen side.
func (g *Generator) Generate(keys []string) model.TrialSpec {
	target := keys[g.rnd.Intn(len(keys))]
	dist := keys[g.rnd.Intn(len(keys))]
	empty, full := layout(target, dist, g.rnd.Float64() > 0.5)
	return model.TrialSpec{
		Target:        target,
		Dist:          dist,
		CueCongruent:  target == dist,
		EmptyStimulus: empty,
		FullStimulus:  full,
	}
}

// layout places the neutral pair left of the target when neutralLeft is set,
// otherwise the distractor pair comes first.
func layout(target, dist string, neutralLeft bool) (empty, full string) {
	t := strings.ToUpper(target)
	d := strings.ToUpper(dist)
	if neutralLeft {
		return Placeholder + Hidden + d + d, Placeholder + t + d + d
	}
	return d + d + Hidden + Placeholder, d + d + t + Placeholder
}
