package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/parser"
)

const failingLog = "install A\n" +
	"install B (requires A)\n" +
	"install C (requires A)\n" +
	"conflict: B requires A==1, C requires A==2\n" +
	"fail B\n"

func writeLogs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

func newRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	r, err := New(analyzer.NewDefault(), Options{Workers: workers, CacheSize: 16})
	require.NoError(t, err)
	return r
}

func TestExpand(t *testing.T) {
	dir := writeLogs(t, map[string]string{
		"b.log":          failingLog,
		"a.log":          failingLog,
		"nested/c.log":   failingLog,
		"nested/skip.md": "readme",
	})

	paths, err := Expand([]string{
		filepath.Join(dir, "**", "*.log"),
		filepath.Join(dir, "a.log"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.log"),
		filepath.Join(dir, "b.log"),
		filepath.Join(dir, "nested", "c.log"),
	}, paths)

	_, err = Expand([]string{filepath.Join(dir, "*.txt")})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestRun_IdenticalLogsAnalyzedOnce(t *testing.T) {
	dir := writeLogs(t, map[string]string{
		"one.log":   failingLog,
		"two.log":   failingLog,
		"three.log": failingLog,
	})
	paths, err := Expand([]string{filepath.Join(dir, "*.log")})
	require.NoError(t, err)

	r := newRunner(t, 1)
	results, err := r.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, 3)

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, 1, stats.Items)

	for _, res := range results {
		require.NoError(t, res.Err)
		require.NotNil(t, res.Report)
		assert.Equal(t, "A", res.Report.Candidates[0].Package)
		assert.Equal(t, results[0].Digest, res.Digest)
	}
	assert.False(t, results[0].Cached, "one.log is analyzed first")
}

func TestRun_ErrorsStayPerFile(t *testing.T) {
	dir := writeLogs(t, map[string]string{
		"a-good.log":  failingLog,
		"b-empty.log": "",
		"c-noise.log": "nothing to see\n",
	})
	paths := []string{
		filepath.Join(dir, "c-noise.log"),
		filepath.Join(dir, "a-good.log"),
		filepath.Join(dir, "missing.log"),
		filepath.Join(dir, "b-empty.log"),
	}

	results, err := newRunner(t, 4).Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, filepath.Join(dir, "a-good.log"), results[0].Path)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Report)

	assert.ErrorIs(t, results[1].Err, parser.ErrMalformedLog)
	assert.ErrorIs(t, results[2].Err, parser.ErrMalformedLog)
	assert.NotEmpty(t, results[2].Error)

	assert.ErrorIs(t, results[3].Err, os.ErrNotExist)
	assert.Nil(t, results[3].Report)
}

func TestRun_Cancelled(t *testing.T) {
	dir := writeLogs(t, map[string]string{"a.log": failingLog})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, 1).Run(ctx, []string{filepath.Join(dir, "a.log")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RejectsEmptyCache(t *testing.T) {
	_, err := New(analyzer.NewDefault(), Options{})
	assert.Error(t, err)
}

func TestDecodeLog(t *testing.T) {
	assert.Equal(t, "install A\n", DecodeLog([]byte("\xEF\xBB\xBFinstall A\n")))
	assert.Equal(t, "fail �B", DecodeLog([]byte("fail \xffB")))
}

func TestDigest(t *testing.T) {
	assert.Len(t, Digest("x"), 64)
	assert.Equal(t, Digest(failingLog), Digest(failingLog))
	assert.NotEqual(t, Digest("a"), Digest("b"))
}
