// Package table reconstructs a dependency table from parsed log events.
package table

import (
	"regexp"

	"github.com/thoth-station/build-analysers/pkg/model"
)

// UserRequirer labels constraints requested directly by the user.
const UserRequirer = "(user)"

// maxContextLines caps the error lines kept verbatim on a row.
const maxContextLines = 5

var errorLine = regexp.MustCompile(`(?i)\b(error|fatal|traceback|exception|failed)\b`)

type rowKey struct {
	pkg    string
	parent string
}

// frame is one open install on the parent stack.
type frame struct {
	pkg string
	row int
}

// Table is an ordered set of dependency rows with lookup indexes.
type Table struct {
	rows      []model.DependencyRow
	byName    map[string][]int
	byKey     map[rowKey]int
	anomalies model.Anomalies
}

// Build folds events into a table. The parent stack lives only for this call.
func Build(events []model.LogEvent) *Table {
	t := &Table{
		byName: make(map[string][]int),
		byKey:  make(map[rowKey]int),
	}

	var stack []frame
	for _, ev := range events {
		switch ev.Kind {
		case model.EventInstallAttempt:
			stack = t.attempt(stack, ev)
		case model.EventInstallSuccess:
			stack = t.outcome(stack, ev, model.OutcomeSuccess)
		case model.EventInstallFailure:
			stack = t.outcome(stack, ev, model.OutcomeFailure)
		case model.EventConflict:
			t.conflict(ev)
		case model.EventGeneric:
			t.context(stack, ev)
		}
	}
	return t
}

// Rows returns a copy of the rows in log order.
func (t *Table) Rows() []model.DependencyRow {
	out := make([]model.DependencyRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Lookup returns the most recent row recorded for pkg.
func (t *Table) Lookup(pkg string) (model.DependencyRow, bool) {
	idx, ok := t.latest(pkg)
	if !ok {
		return model.DependencyRow{}, false
	}
	return t.rows[idx], true
}

// RowsFor returns every row recorded for pkg, in log order.
func (t *Table) RowsFor(pkg string) []model.DependencyRow {
	indexes := t.byName[pkg]
	out := make([]model.DependencyRow, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, t.rows[idx])
	}
	return out
}

// Anomalies returns the inconsistencies absorbed while building.
func (t *Table) Anomalies() model.Anomalies {
	return t.anomalies
}

func (t *Table) attempt(stack []frame, ev model.LogEvent) []frame {
	parent, parentIdx := "", model.NoRow
	switch {
	case ev.Parent != "":
		parent = ev.Parent
		if idx, ok := t.latest(ev.Parent); ok {
			parentIdx = idx
		}
	case ev.TopLevel:
	case len(stack) > 0:
		top := stack[len(stack)-1]
		parent, parentIdx = top.pkg, top.row
	}

	if parent != "" && t.requires(parentIdx, parent, ev.Package) {
		t.anomalies.CyclesBroken++
		parent, parentIdx = model.UnknownParent, model.NoRow
	}

	idx := t.upsert(ev.Package, parent, parentIdx, ev)
	t.rows[idx].Attempts++
	return append(stack, frame{pkg: ev.Package, row: idx})
}

func (t *Table) outcome(stack []frame, ev model.LogEvent, outcome model.Outcome) []frame {
	idx := -1
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].pkg == ev.Package {
			idx = stack[i].row
			stack = append(stack[:i:i], stack[i+1:]...)
			break
		}
	}

	if idx < 0 && ev.Parent != "" {
		if existing, ok := t.byKey[rowKey{ev.Package, ev.Parent}]; ok {
			idx = existing
		} else {
			parent, parentIdx := ev.Parent, model.NoRow
			if p, ok := t.latest(ev.Parent); ok {
				parentIdx = p
			}
			if t.requires(parentIdx, parent, ev.Package) {
				t.anomalies.CyclesBroken++
				parent, parentIdx = model.UnknownParent, model.NoRow
			}
			idx = t.upsert(ev.Package, parent, parentIdx, ev)
		}
	}
	if idx < 0 {
		if existing, ok := t.latest(ev.Package); ok {
			idx = existing
		} else {
			t.anomalies.UnresolvedOutcomes++
			idx = t.upsert(ev.Package, model.UnknownParent, model.NoRow, ev)
		}
	}

	row := &t.rows[idx]
	row.Outcome = outcome
	if ev.Version != "" {
		row.Version = ev.Version
	}
	row.LastLine = ev.Line
	if outcome == model.OutcomeFailure {
		row.FailedLine = ev.Line
	}
	return stack
}

func (t *Table) conflict(ev model.LogEvent) {
	requirer := ev.Parent
	if requirer == "" {
		requirer = UserRequirer
	}
	constraint := requirer
	if ev.Constraint != "" {
		constraint += " " + ev.Constraint
	}

	if len(t.byName[ev.Package]) == 0 {
		parent, parentIdx := ev.Parent, model.NoRow
		if p, ok := t.latest(ev.Parent); ok {
			parentIdx = p
		}
		if parent != "" && t.requires(parentIdx, parent, ev.Package) {
			t.anomalies.CyclesBroken++
			parent, parentIdx = model.UnknownParent, model.NoRow
		}
		ev.Version = ""
		t.upsert(ev.Package, parent, parentIdx, ev)
	}

	for _, idx := range t.byName[ev.Package] {
		row := &t.rows[idx]
		row.Conflict = true
		row.Constraints = appendUnique(row.Constraints, constraint)
		row.LastLine = ev.Line
	}
}

func (t *Table) context(stack []frame, ev model.LogEvent) {
	if len(stack) == 0 || !errorLine.MatchString(ev.Raw) {
		return
	}
	row := &t.rows[stack[len(stack)-1].row]
	row.ErrorLines++
	if len(row.Context) < maxContextLines {
		row.Context = append(row.Context, ev.Raw)
	}
}

// upsert returns the row for (pkg, parent), creating it when missing.
func (t *Table) upsert(pkg, parent string, parentIdx int, ev model.LogEvent) int {
	key := rowKey{pkg, parent}
	if idx, ok := t.byKey[key]; ok {
		row := &t.rows[idx]
		if ev.Version != "" {
			row.Version = ev.Version
		}
		row.LastLine = ev.Line
		return idx
	}

	idx := len(t.rows)
	t.rows = append(t.rows, model.DependencyRow{
		Index:       idx,
		Package:     pkg,
		Version:     ev.Version,
		Parent:      parent,
		ParentIndex: parentIdx,
		Outcome:     model.OutcomeUnknown,
		FirstLine:   ev.Line,
		LastLine:    ev.Line,
	})
	t.byKey[key] = idx
	t.byName[pkg] = append(t.byName[pkg], idx)
	return idx
}

// requires reports whether pkg already appears on the chain starting at parent.
func (t *Table) requires(parentIdx int, parent, pkg string) bool {
	if parent == pkg {
		return true
	}
	seen := make(map[int]bool)
	for idx := parentIdx; idx != model.NoRow && !seen[idx]; idx = t.rows[idx].ParentIndex {
		seen[idx] = true
		if t.rows[idx].Package == pkg {
			return true
		}
	}
	return false
}

func (t *Table) latest(pkg string) (int, bool) {
	indexes := t.byName[pkg]
	if len(indexes) == 0 {
		return 0, false
	}
	return indexes[len(indexes)-1], true
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
