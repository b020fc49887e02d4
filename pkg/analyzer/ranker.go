package analyzer

import (
	"fmt"
	"sort"

	"github.com/thoth-station/build-analysers/pkg/model"
	"github.com/thoth-station/build-analysers/pkg/versions"
)

// DefaultTopN is the number of candidates returned when no limit is configured.
const DefaultTopN = 5

// errorContextCap is the number of error lines that earns the full error context weight.
const errorContextCap = 5

// Weights tune the candidate score. Every weight must be non-negative so
// that moving a package closer to the failure, or flagging it, never lowers
// its score.
type Weights struct {
	Appearance   float64 `json:"appearance" yaml:"appearance" koanf:"appearance"`
	Conflict     float64 `json:"conflict" yaml:"conflict" koanf:"conflict"`
	Violation    float64 `json:"violation" yaml:"violation" koanf:"violation"`
	Proximity    float64 `json:"proximity" yaml:"proximity" koanf:"proximity"`
	Failure      float64 `json:"failure" yaml:"failure" koanf:"failure"`
	ErrorContext float64 `json:"error_context" yaml:"error_context" koanf:"error_context"`
}

// DefaultWeights returns the stock scoring policy.
func DefaultWeights() Weights {
	return Weights{
		Appearance:   1.0,
		Conflict:     2.5,
		Violation:    1.0,
		Proximity:    2.0,
		Failure:      1.0,
		ErrorContext: 1.0,
	}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"appearance", w.Appearance},
		{"conflict", w.Conflict},
		{"violation", w.Violation},
		{"proximity", w.Proximity},
		{"failure", w.Failure},
		{"error_context", w.ErrorContext},
	}
	for _, c := range checks {
		if c.value < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %v", c.name, c.value)
		}
	}
	return nil
}

// Rank scores every package of the branch and returns the topN best
// candidates, highest score first. Ties keep branch order. topN <= 0
// returns every candidate.
func Rank(branch model.FailedBranch, topN int, w Weights) []model.Candidate {
	if branch.Empty() {
		return []model.Candidate{}
	}

	candidates := make([]model.Candidate, 0, len(branch.Rows))
	for i, row := range branch.Rows {
		factors := scoreRow(row, distance(i, branch.FailureIndex), w)
		candidates = append(candidates, model.Candidate{
			Package:  row.Package,
			Score:    factors.Total(),
			Factors:  factors,
			Evidence: []model.DependencyRow{row},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

func scoreRow(row model.DependencyRow, dist int, w Weights) model.ScoreFactors {
	f := model.ScoreFactors{
		Appearance: w.Appearance * float64(max(row.Attempts, 1)),
		Proximity:  w.Proximity / float64(1+dist),
	}
	if row.Conflict {
		f.Conflict = w.Conflict
	}
	if len(versions.Violated(row.Version, row.Constraints)) > 0 {
		f.Violation = w.Violation
	}
	if row.Outcome == model.OutcomeFailure {
		f.Failure = w.Failure
	}
	if row.ErrorLines > 0 {
		f.ErrorContext = w.ErrorContext * float64(min(row.ErrorLines, errorContextCap)) / errorContextCap
	}
	return f
}

func distance(i, failure int) int {
	if failure < 0 {
		return i
	}
	if i > failure {
		return i - failure
	}
	return failure - i
}
