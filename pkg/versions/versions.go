// Package versions checks resolved package versions against the
// requirement specifiers found in build logs.
package versions

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// ToConstraint rewrites a pip style specifier into go-version syntax.
//
//	"==1.4"      -> "= 1.4"
//	"~=1.4"      -> "~> 1.4"
//	"==1.4.*"    -> "~> 1.4.0"
//	">=1.5,<2"   -> ">= 1.5, < 2"
func ToConstraint(spec string) (version.Constraints, error) {
	var parts []string
	for _, clause := range strings.Split(spec, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		op, ver := splitOperator(clause)
		if ver == "" {
			return nil, fmt.Errorf("specifier %q has no version", clause)
		}
		switch op {
		case "===", "==":
			if strings.HasSuffix(ver, ".*") {
				parts = append(parts, "~> "+strings.TrimSuffix(ver, ".*")+".0")
				continue
			}
			op = "="
		case "~=":
			op = "~>"
		case "!=":
			if strings.HasSuffix(ver, ".*") {
				return nil, fmt.Errorf("wildcard exclusion %q is not supported", clause)
			}
		case "":
			op = "="
		}
		parts = append(parts, op+" "+ver)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty specifier")
	}
	return version.NewConstraint(strings.Join(parts, ", "))
}

// Satisfies reports whether resolved meets spec.
func Satisfies(resolved, spec string) (bool, error) {
	v, err := version.NewVersion(resolved)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", resolved, err)
	}
	c, err := ToConstraint(spec)
	if err != nil {
		return false, fmt.Errorf("invalid specifier %q: %w", spec, err)
	}
	return c.Check(v), nil
}

// Violated returns the recorded constraints that resolved does not satisfy.
// Constraints are "<requirer> <spec>" strings; unparseable entries are skipped.
func Violated(resolved string, constraints []string) []string {
	if resolved == "" {
		return nil
	}
	var out []string
	for _, c := range constraints {
		_, spec, ok := strings.Cut(c, " ")
		if !ok {
			continue
		}
		ok, err := Satisfies(resolved, spec)
		if err == nil && !ok {
			out = append(out, c)
		}
	}
	return out
}

func splitOperator(clause string) (string, string) {
	for _, op := range []string{"===", "==", "~=", "!=", ">=", "<=", ">", "<"} {
		if strings.HasPrefix(clause, op) {
			return op, strings.TrimSpace(clause[len(op):])
		}
	}
	return "", clause
}
