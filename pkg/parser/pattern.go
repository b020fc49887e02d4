package parser

import (
	"regexp"
	"strings"

	"github.com/thoth-station/build-analysers/pkg/model"
)

// Pattern maps one line shape to an event kind.
//
// Named groups carry the event fields: pkg, ver, ver2, spec, parent and list.
type Pattern struct {
	Kind model.EventKind
	Expr *regexp.Regexp

	// Clause is applied repeatedly to the list group, one event per match.
	Clause *regexp.Regexp

	// List splits the list group into whitespace separated name-version items.
	List bool

	// TopLevel attempts never inherit a parent from the install stack.
	TopLevel bool
}

var listItemPattern = regexp.MustCompile(`^(.+?)-(\d[\w.+!]*)$`)

// match returns the events produced by line, or false when the pattern does not apply.
func (p Pattern) match(line string) ([]model.LogEvent, bool) {
	m := p.Expr.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	groups := namedGroups(p.Expr, m)

	switch {
	case p.Clause != nil:
		var events []model.LogEvent
		for _, cm := range p.Clause.FindAllStringSubmatch(groups["list"], -1) {
			events = append(events, p.event(namedGroups(p.Clause, cm)))
		}
		return events, len(events) > 0
	case p.List:
		var events []model.LogEvent
		for _, item := range strings.Fields(groups["list"]) {
			item = strings.Trim(item, ",;()")
			if item == "" {
				continue
			}
			fields := map[string]string{"pkg": item}
			if im := listItemPattern.FindStringSubmatch(item); im != nil {
				fields["pkg"], fields["ver"] = im[1], im[2]
			}
			events = append(events, p.event(fields))
		}
		return events, len(events) > 0
	default:
		if groups["pkg"] == "" {
			return nil, false
		}
		return []model.LogEvent{p.event(groups)}, true
	}
}

func (p Pattern) event(fields map[string]string) model.LogEvent {
	ev := model.LogEvent{
		Kind:       p.Kind,
		Package:    fields["pkg"],
		Version:    fields["ver"],
		Constraint: strings.TrimSpace(fields["spec"]),
		Parent:     fields["parent"],
		TopLevel:   p.TopLevel,
	}
	if ev.Version == "" {
		ev.Version = fields["ver2"]
	}
	// A failed request resolved nothing, so its pin stays in Constraint only.
	if ev.Version == "" && p.Kind != model.EventInstallFailure {
		ev.Version = pinnedVersion(ev.Constraint)
	}
	return ev
}

// pinnedVersion extracts X from an exact "==X" specifier.
func pinnedVersion(spec string) string {
	spec = strings.TrimSpace(spec)
	if strings.ContainsAny(spec, ",*") {
		return ""
	}
	for _, op := range []string{"===", "=="} {
		if strings.HasPrefix(spec, op) {
			return strings.TrimSpace(spec[len(op):])
		}
	}
	return ""
}

func namedGroups(re *regexp.Regexp, m []string) map[string]string {
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(m) && m[i] != "" {
			groups[name] = m[i]
		}
	}
	return groups
}
