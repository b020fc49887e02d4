// Package parser turns raw build log text into an ordered sequence of
// dependency events.
//
// Matching is table driven: a Handler holds an ordered list of Patterns and
// the first pattern matching a line wins. Every line is matched on its own,
// so parsing is a single forward pass over the log.
package parser

import (
	"regexp"
	"strings"

	"github.com/thoth-station/build-analysers/pkg/model"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// Options controls how a log is tokenized.
type Options struct {
	// Handler selects the pattern table. Empty or "auto" detects it from the text.
	Handler string

	// KeepNoise retains unmatched lines as generic events.
	KeepNoise bool
}

// Result is the tokenized log.
type Result struct {
	Events  []model.LogEvent
	Handler string

	// Lines is the number of lines read, Recognized the number of
	// lines that produced a non-generic event.
	Lines      int
	Recognized int
}

// Parse tokenizes text.
//
// An empty log yields an empty result. A non-empty log in which no line
// matches a dependency pattern yields a *MalformedLogError.
func Parse(text string, opts Options) (*Result, error) {
	h, err := Resolve(opts.Handler, text)
	if err != nil {
		return nil, err
	}

	res := &Result{Handler: h.Name}
	if strings.TrimSpace(text) == "" {
		return res, nil
	}

	offset := 0
	for offset < len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		var raw string
		if end < 0 {
			raw = text[offset:]
			end = len(text)
		} else {
			raw = text[offset : offset+end]
			end = offset + end + 1
		}
		res.Lines++

		raw = strings.TrimRight(raw, "\r")
		line := normalizeLine(h, raw)
		if line != "" {
			events := h.match(line)
			if len(events) > 0 {
				res.Recognized++
			} else if opts.KeepNoise {
				events = []model.LogEvent{{Kind: model.EventGeneric}}
			}
			for _, ev := range events {
				ev.Line = res.Lines
				ev.Offset = offset
				ev.Raw = raw
				res.Events = append(res.Events, ev)
			}
		}
		offset = end
	}

	if res.Recognized == 0 {
		return nil, &MalformedLogError{Handler: h.Name, Lines: res.Lines}
	}
	return res, nil
}

func (h *Handler) match(line string) []model.LogEvent {
	for _, p := range h.Patterns {
		events, ok := p.match(line)
		if !ok {
			continue
		}
		for i := range events {
			events[i].Package = h.normalize(events[i].Package)
			events[i].Parent = h.normalize(events[i].Parent)
		}
		return events
	}
	return nil
}

func normalizeLine(h *Handler, raw string) string {
	line := strings.TrimSpace(ansiEscape.ReplaceAllString(raw, ""))
	if h.Strip != nil {
		line = h.Strip.ReplaceAllString(line, "")
	}
	return line
}
