package analyzer

import (
	"sort"
	"strings"

	"github.com/thoth-station/build-analysers/pkg/model"
)

// FailedBranch isolates the rows causally leading to the first failure.
//
// The trigger is the row whose failure outcome appears earliest in the log,
// not the earliest created row. Starting there it follows parent
// references up to the root, then adds the rows sharing the failed row's
// parent, since conflicts are usually between siblings. The result is in log
// order with one row per package. Conflicted dependencies of the chain and
// the packages whose constraints clash with them are added as well. A table
// without failures yields an empty branch.
func FailedBranch(rows []model.DependencyRow) model.FailedBranch {
	failed := -1
	for i, r := range rows {
		if r.Outcome != model.OutcomeFailure {
			continue
		}
		if failed < 0 || failureLine(r) < failureLine(rows[failed]) {
			failed = i
		}
	}
	if failed < 0 {
		return model.FailedBranch{FailureIndex: -1}
	}

	position := make(map[int]int, len(rows))
	for i, r := range rows {
		position[r.Index] = i
	}

	members := map[int]bool{failed: true}
	for idx := rows[failed].ParentIndex; idx != model.NoRow; {
		pos, ok := position[idx]
		if !ok || members[pos] {
			break
		}
		members[pos] = true
		idx = rows[pos].ParentIndex
	}

	chain := make(map[string]bool, len(members))
	for pos := range members {
		chain[rows[pos].Package] = true
	}

	if parent := rows[failed].Parent; parent != "" && parent != model.UnknownParent {
		for i, r := range rows {
			if r.Parent == parent {
				members[i] = true
			}
		}
	}

	// Conflicted packages required by the chain, then the packages that
	// imposed the clashing constraints.
	latest := make(map[string]int, len(rows))
	for i, r := range rows {
		latest[r.Package] = i
		if r.Conflict && chain[r.Parent] {
			members[i] = true
		}
	}
	for _, pos := range sortedKeys(members) {
		if !rows[pos].Conflict {
			continue
		}
		for _, c := range rows[pos].Constraints {
			requirer, _, _ := strings.Cut(c, " ")
			if p, ok := latest[requirer]; ok {
				members[p] = true
			}
		}
	}

	ordered := sortedKeys(members)
	failedPkg := rows[failed].Package
	branch := model.FailedBranch{FailureIndex: -1}
	seen := make(map[string]bool, len(ordered))
	for _, pos := range ordered {
		r := rows[pos]
		if r.Package == failedPkg && pos != failed {
			continue
		}
		if seen[r.Package] {
			continue
		}
		seen[r.Package] = true
		if pos == failed {
			branch.FailureIndex = len(branch.Rows)
		}
		branch.Rows = append(branch.Rows, r)
	}
	return branch
}

// SuccessfullyInstalled returns the sorted names of packages with at least
// one successful row.
func SuccessfullyInstalled(rows []model.DependencyRow) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range rows {
		if r.Outcome == model.OutcomeSuccess && !seen[r.Package] {
			seen[r.Package] = true
			names = append(names, r.Package)
		}
	}
	sort.Strings(names)
	return names
}

// failureLine falls back to LastLine for rows built without a recorded failure line.
func failureLine(r model.DependencyRow) int {
	if r.FailedLine > 0 {
		return r.FailedLine
	}
	return r.LastLine
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
