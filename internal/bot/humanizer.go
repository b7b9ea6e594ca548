package bot

import (
	"errors"
	"math/rand"

	"github.com/park285/chess-tui-sync/internal/chess/uci"
)

var errNoCandidates = errors.New("no candidates to choose from")

// SelectCandidate picks one of the engine lines by the preset's weights.
// Lines beyond the weight table are never chosen.
func SelectCandidate(p Preset, candidates []uci.Candidate, r *rand.Rand) (uci.Candidate, error) {
	if len(candidates) == 0 {
		return uci.Candidate{}, errNoCandidates
	}
	if err := ValidatePreset(p); err != nil {
		return uci.Candidate{}, err
	}

	limit := len(p.CandidateWeights)
	if limit > len(candidates) {
		limit = len(candidates)
	}
	if limit == 1 || r == nil {
		return candidates[0], nil
	}

	total := 0.0
	for i := 0; i < limit; i++ {
		total += p.CandidateWeights[i]
	}
	if total == 0 {
		return candidates[0], nil
	}

	threshold := r.Float64() * total
	for i := 0; i < limit; i++ {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			return candidates[i], nil
		}
	}
	return candidates[limit-1], nil
}
