package parser

import (
	"regexp"
	"strings"

	"github.com/thoth-station/build-analysers/pkg/model"
)

// Building blocks shared by the pattern tables.
const (
	namePart    = `[A-Za-z0-9][\w.\-]*`
	extrasPart  = `(?:\[[^\]]*\])?`
	operator    = `(?:===|==|~=|!=|>=|<=|>|<)`
	specPart    = operator + `\s*[^\s,;()]+(?:\s*,\s*` + operator + `\s*[^\s,;()]+)*`
	versionPart = `(?:\s*(?:==|@)\s*(?P<ver>[\w.+!\-]+)|\s+v?(?P<ver2>\d[\w.+!\-]*))?`
)

var (
	genericPatterns = []Pattern{
		{
			Kind: model.EventInstallFailure,
			Expr: regexp.MustCompile(`(?i)^failed\s+to\s+(?:build|install)\s+(?P<pkg>` + namePart + `)`),
		},
		{
			Kind: model.EventConflict,
			Expr: regexp.MustCompile(`(?i)^conflict:\s*(?P<list>.+)$`),
			Clause: regexp.MustCompile(`(?i)(?P<parent>` + namePart + `)\s+requires\s+(?P<pkg>` + namePart + `)\s*(?P<spec>` +
				specPart + `)?`),
		},
		{
			Kind: model.EventInstallAttempt,
			Expr: regexp.MustCompile(`(?i)^install(?:ing)?\s+(?P<pkg>` + namePart + `)` + versionPart +
				`(?:\s*\((?:requires|required\s+by|from)\s+(?P<parent>` + namePart + `)[^)]*\))?\s*$`),
		},
		{
			Kind: model.EventInstallSuccess,
			Expr: regexp.MustCompile(`(?i)^(?:installed|successfully\s+installed|success|ok|done)(?::\s*|\s+)(?P<pkg>` +
				namePart + `)` + versionPart + `\s*$`),
		},
		{
			Kind: model.EventInstallFailure,
			Expr: regexp.MustCompile(`(?i)^(?:fail|failed|failure)(?::\s*|\s+)(?P<pkg>` + namePart + `)\s*(?:$|[:(])`),
		},
	}

	pipPatterns = []Pattern{
		{
			Kind:     model.EventInstallAttempt,
			TopLevel: true,
			Expr: regexp.MustCompile(`^Collecting\s+(?P<pkg>` + namePart + `)` + extrasPart + `\s*(?P<spec>` + specPart + `)?` +
				`(?:.*?\(from\s+(?P<parent>` + namePart + `)[^)]*\))?`),
		},
		{
			Kind: model.EventInstallSuccess,
			Expr: regexp.MustCompile(`^Requirement already satisfied:\s+(?P<pkg>` + namePart + `)` + extrasPart +
				`\s*(?P<spec>` + specPart + `)?(?:.*?\(from\s+(?P<parent>` + namePart + `)[^)]*\))?` +
				`(?:.*?\((?P<ver>\d[\w.+!\-]*)\))?`),
		},
		{
			Kind: model.EventInstallSuccess,
			List: true,
			Expr: regexp.MustCompile(`^Successfully installed\s+(?P<list>.+)$`),
		},
		{
			Kind: model.EventInstallFailure,
			Expr: regexp.MustCompile(`^(?:ERROR:\s+)?Failed building wheel for\s+(?P<pkg>` + namePart + `)`),
		},
		{
			Kind: model.EventInstallFailure,
			List: true,
			Expr: regexp.MustCompile(`^(?:ERROR:\s+)?Failed to build installable wheels for some pyproject\.toml based projects\s+\((?P<list>[^)]+)\)`),
		},
		{
			Kind: model.EventInstallFailure,
			List: true,
			Expr: regexp.MustCompile(`^(?:ERROR:\s+)?Failed to build\s+(?P<list>` + namePart + `(?:[\s,]+` + namePart + `)*)\s*$`),
		},
		{
			Kind: model.EventInstallFailure,
			Expr: regexp.MustCompile(`^Running setup\.py install for\s+(?P<pkg>` + namePart + `)\s*\.\.\.\s*error`),
		},
		{
			Kind: model.EventInstallFailure,
			Expr: regexp.MustCompile(`^(?:ERROR:\s+)?Could not find a version that satisfies the requirement\s+(?P<pkg>` +
				namePart + `)` + extrasPart + `\s*(?P<spec>` + specPart + `)?`),
		},
		{
			Kind: model.EventInstallFailure,
			Expr: regexp.MustCompile(`^(?:ERROR:\s+)?No matching distribution found for\s+(?P<pkg>` + namePart + `)` +
				extrasPart + `\s*(?P<spec>` + specPart + `)?`),
		},
		{
			Kind: model.EventInstallFailure,
			Expr: regexp.MustCompile(`^(?:ERROR:\s+)?Cannot install\s+(?P<list>.+?)\s+because these package versions have conflicting dependencies`),
			Clause: regexp.MustCompile(`(?:^|,\s*|\s+and\s+)(?P<pkg>` + namePart + `)` + extrasPart + `\s*(?P<spec>` + specPart + `)?`),
		},
		{
			Kind: model.EventConflict,
			Expr: regexp.MustCompile(`^(?:ERROR:\s+)?(?P<parent>` + namePart + `)\s+\S+\s+has requirement\s+(?P<pkg>` +
				namePart + `)` + extrasPart + `\s*(?P<spec>` + specPart + `)?,\s+but you(?:'ll| will) have`),
		},
		{
			Kind: model.EventConflict,
			Expr: regexp.MustCompile(`^(?P<parent>` + namePart + `)\s+\S+\s+depends on\s+(?P<pkg>` + namePart + `)` +
				extrasPart + `\s*(?P<spec>` + specPart + `)?`),
		},
		{
			Kind: model.EventConflict,
			Expr: regexp.MustCompile(`^The user requested\s+(?P<pkg>` + namePart + `)` + extrasPart + `\s*(?P<spec>` + specPart + `)?`),
		},
	}

	pipenvPatterns = append([]Pattern{
		{
			Kind: model.EventInstallFailure,
			Expr: regexp.MustCompile(`^(?:ERROR:\s+)?Could not find a version that matches\s+(?P<pkg>` + namePart + `)` +
				extrasPart + `\s*(?P<spec>` + specPart + `)?`),
		},
	}, pipPatterns...)

	pipenvPrefix = regexp.MustCompile(`^\[pipenv\.exceptions\.\w+\]:\s*`)

	pep503Separators = regexp.MustCompile(`[-_.]+`)
)

// NormalizePythonName canonicalizes a Python distribution name as PEP 503 does.
func NormalizePythonName(name string) string {
	return pep503Separators.ReplaceAllString(strings.ToLower(name), "-")
}

func init() {
	Register(&Handler{
		Name:     HandlerGeneric,
		Patterns: genericPatterns,
	})
	Register(&Handler{
		Name:      HandlerPip,
		Patterns:  pipPatterns,
		Normalize: NormalizePythonName,
		Detect: func(text string) bool {
			return strings.Contains(text, "Collecting ") ||
				strings.Contains(text, "Successfully installed ") ||
				strings.Contains(text, "Requirement already satisfied")
		},
	})
	Register(&Handler{
		Name:      HandlerPipenv,
		Patterns:  pipenvPatterns,
		Normalize: NormalizePythonName,
		Strip:     pipenvPrefix,
		Detect: func(text string) bool {
			return strings.Contains(text, "pipenv") || strings.Contains(text, "Pipfile")
		},
	})
}
