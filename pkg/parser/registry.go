package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Handler names accepted by Lookup.
const (
	HandlerAuto    = "auto"
	HandlerGeneric = "generic"
	HandlerPip     = "pip"
	HandlerPipenv  = "pipenv"
)

// Handler is a table of patterns for one log format.
type Handler struct {
	Name     string
	Patterns []Pattern

	// Detect reports whether a log was most likely written by this tool.
	// Handlers without a detector are never picked by auto detection.
	Detect func(text string) bool

	// Normalize canonicalizes package names. Nil keeps names as written.
	Normalize func(name string) string

	// Strip removes a tool specific prefix before matching.
	Strip *regexp.Regexp
}

var (
	registry = map[string]*Handler{}

	// detectionOrder lists the handlers tried by auto detection, most specific first.
	detectionOrder = []string{HandlerPipenv, HandlerPip}
)

// Register adds h to the registry, replacing any handler of the same name.
func Register(h *Handler) {
	registry[h.Name] = h
}

// Lookup returns the handler registered under name. Use Resolve for auto detection.
func Lookup(name string) (*Handler, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	h, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownHandler, name, strings.Join(Names(), ", "))
	}
	return h, nil
}

// Resolve picks the handler for text. Auto detection falls back to the generic handler.
func Resolve(name, text string) (*Handler, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" && name != HandlerAuto {
		return Lookup(name)
	}
	for _, candidate := range detectionOrder {
		h, ok := registry[candidate]
		if ok && h.Detect != nil && h.Detect(text) {
			return h, nil
		}
	}
	return Lookup(HandlerGeneric)
}

// Names lists the registered handler names plus "auto", sorted.
func Names() []string {
	names := []string{HandlerAuto}
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Handler) normalize(name string) string {
	if h.Normalize == nil || name == "" {
		return name
	}
	return h.Normalize(name)
}
