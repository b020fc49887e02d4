// Package batch analyzes many build logs concurrently.
//
// Logs with identical content are analyzed once: reports are cached by the
// BLAKE3 digest of the log text and concurrent requests for the same digest
// share a single analysis.
package batch

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"lukechampine.com/blake3"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/logging"
	"github.com/thoth-station/build-analysers/pkg/model"
)

// ErrNoFiles is returned when the patterns match nothing.
var ErrNoFiles = errors.New("no log files matched")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configure a Runner.
type Options struct {
	// Workers bounds concurrent analyses. Zero means one per CPU.
	Workers int

	// CacheSize is the number of reports kept by digest.
	CacheSize int
}

// Result is the outcome for one file. Err is set instead of Report when the
// file could not be read or analyzed.
type Result struct {
	Path   string        `json:"path" yaml:"path"`
	Digest string        `json:"digest,omitempty" yaml:"digest,omitempty"`
	Cached bool          `json:"cached" yaml:"cached"`
	Report *model.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Err    error         `json:"-" yaml:"-"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Stats counts cache activity.
type Stats struct {
	Hits   uint64 `json:"hits" yaml:"hits"`
	Misses uint64 `json:"misses" yaml:"misses"`
	Items  int    `json:"items" yaml:"items"`
}

// Runner fans analyses out over a bounded worker pool.
type Runner struct {
	analyzer *analyzer.Analyzer
	cache    *lru.Cache[string, model.Report]
	group    singleflight.Group
	workers  int

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New returns a Runner using a for every analysis.
func New(a *analyzer.Analyzer, opts Options) (*Runner, error) {
	if opts.CacheSize <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", opts.CacheSize)
	}
	cache, err := lru.New[string, model.Report](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{analyzer: a, cache: cache, workers: workers}, nil
}

// Expand resolves doublestar patterns to a sorted, de-duplicated file list.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	sort.Strings(paths)
	return paths, nil
}

// Run analyzes every path and returns one result per path, ordered by path.
// Per-file failures are reported in the results; only cancellation of ctx
// aborts the run.
func (r *Runner) Run(ctx context.Context, paths []string) ([]Result, error) {
	logger := logging.FromContext(ctx)
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, path := range paths {
		i, path := i, path // per-iteration copies (go directive is 1.21)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.analyzeFile(path)
			if res.Err != nil {
				res.Error = res.Err.Error()
				logger.Warn("analysis failed", "file", path, "error", res.Err)
			} else {
				logger.Debug("analysis done", "file", path, "digest", res.Digest, "cached", res.Cached)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// Analyze returns the report for text, reusing the cached report for
// identical content. The boolean reports a cache hit.
func (r *Runner) Analyze(text string) (model.Report, bool, error) {
	digest := Digest(text)
	if report, ok := r.cache.Get(digest); ok {
		r.hits.Add(1)
		return report, true, nil
	}

	analyzed := false
	v, err, _ := r.group.Do(digest, func() (any, error) {
		if report, ok := r.cache.Get(digest); ok {
			return report, nil
		}
		analyzed = true
		_, report, err := r.analyzer.Analyze(text)
		if err != nil {
			return nil, err
		}
		r.cache.Add(digest, report)
		return report, nil
	})
	if err != nil {
		return model.Report{}, false, err
	}
	if analyzed {
		r.misses.Add(1)
	} else {
		r.hits.Add(1)
	}
	return v.(model.Report), !analyzed, nil
}

// Stats returns the cache counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Hits:   r.hits.Load(),
		Misses: r.misses.Load(),
		Items:  r.cache.Len(),
	}
}

func (r *Runner) analyzeFile(path string) Result {
	res := Result{Path: path}
	text, err := ReadLog(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Digest = Digest(text)
	report, cached, err := r.Analyze(text)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", path, err)
		return res
	}
	res.Report = &report
	res.Cached = cached
	return res
}

// Digest returns the hex BLAKE3 digest of text.
func Digest(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ReadLog reads a log file as text. A UTF-8 byte order mark is dropped and
// invalid byte sequences are replaced.
func ReadLog(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read log: %w", err)
	}
	return DecodeLog(data), nil
}

// DecodeLog turns raw log bytes into valid UTF-8 text.
func DecodeLog(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	return string(bytes.ToValidUTF8(data, []byte("�")))
}
