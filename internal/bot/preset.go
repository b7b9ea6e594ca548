package bot

import (
	"fmt"
	"strings"

	"github.com/park285/chess-tui-sync/internal/chess/uci"
)

const DefaultDepth = 10

type Difficulty int

const (
	Off Difficulty = iota
	Easy
	Medium
	Hard
	Magnus
)

func (d Difficulty) String() string {
	switch d {
	case Off:
		return "off"
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	case Magnus:
		return "magnus"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return Off, nil
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	case "magnus":
		return Magnus, nil
	}
	return Off, fmt.Errorf("unknown difficulty %q", s)
}

// Preset holds the search limits and strength cap for one difficulty.
type Preset struct {
	Name           string
	Depth          int
	MoveTimeMillis int
	Elo            int
	Threads        int
	HashMB         int
	MultiPV        int
	// CandidateWeights are applied to the MultiPV lines in order, best first.
	CandidateWeights []float64
}

var presets = map[Difficulty]Preset{
	Easy: {
		Name:             "easy",
		Depth:            4,
		MoveTimeMillis:   200,
		Elo:              1350,
		Threads:          1,
		HashMB:           16,
		MultiPV:          3,
		CandidateWeights: []float64{0.6, 0.25, 0.15},
	},
	Medium: {
		Name:             "medium",
		Depth:            8,
		MoveTimeMillis:   500,
		Elo:              1700,
		Threads:          1,
		HashMB:           32,
		MultiPV:          2,
		CandidateWeights: []float64{0.85, 0.15},
	},
	Hard: {
		Name:             "hard",
		Depth:            12,
		MoveTimeMillis:   1000,
		Elo:              2200,
		Threads:          2,
		HashMB:           64,
		MultiPV:          1,
		CandidateWeights: []float64{1.0},
	},
	Magnus: {
		Name:             "magnus",
		Depth:            20,
		MoveTimeMillis:   2000,
		Elo:              2850,
		Threads:          2,
		HashMB:           128,
		MultiPV:          1,
		CandidateWeights: []float64{1.0},
	},
}

// PresetFor returns the preset for d. Off plays at full strength to depth.
func PresetFor(d Difficulty, depth int) (Preset, error) {
	if d == Off {
		if depth <= 0 {
			depth = DefaultDepth
		}
		return Preset{
			Name:             Off.String(),
			Depth:            depth,
			Threads:          2,
			HashMB:           64,
			MultiPV:          1,
			CandidateWeights: []float64{1.0},
		}, nil
	}
	p, ok := presets[d]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %s", d)
	}
	p.CandidateWeights = append([]float64(nil), p.CandidateWeights...)
	return p, nil
}

func ValidatePreset(p Preset) error {
	switch {
	case p.Depth < 0:
		return fmt.Errorf("depth must be >= 0: %d", p.Depth)
	case p.MoveTimeMillis < 0:
		return fmt.Errorf("move time must be >= 0: %d", p.MoveTimeMillis)
	case p.Depth == 0 && p.MoveTimeMillis == 0:
		return fmt.Errorf("preset %s does not define search limits", p.Name)
	case p.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", p.MultiPV)
	case len(p.CandidateWeights) == 0:
		return fmt.Errorf("candidate weights must not be empty")
	case len(p.CandidateWeights) > p.MultiPV:
		return fmt.Errorf("candidate weights (%d) exceed multipv (%d)", len(p.CandidateWeights), p.MultiPV)
	}
	sum := 0.0
	for i, w := range p.CandidateWeights {
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	return nil
}

func (p Preset) options() uci.Options {
	return uci.Options{
		Threads:       p.Threads,
		HashMB:        p.HashMB,
		MultiPV:       p.MultiPV,
		LimitStrength: p.Elo > 0,
		Elo:           p.Elo,
	}
}

func (p Preset) limits() uci.Limits {
	return uci.Limits{Depth: p.Depth, MoveTimeMillis: p.MoveTimeMillis}
}
