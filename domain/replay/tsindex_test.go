package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeCSVFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestTimestampIndex_PutAndLookup(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenTimestampIndex(filepath.Join(dir, "idx"))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Put(100, 10))
	require.NoError(t, idx.Put(200, 20))
	require.NoError(t, idx.Put(300, 30))

	offset, ok, err := idx.Lookup(150)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(20), offset)

	_, ok, err = idx.Lookup(400)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTimestampIndex_LookupIgnoresFingerprintEntry(t *testing.T) {
	dir := t.TempDir()
	csvDir := t.TempDir()
	csvPath := writeCSVFile(t, csvDir, "tape.csv", "event_type,timestamp\norder,100\n")

	built, err := BuildTimestampIndex(csvPath, filepath.Join(dir, "idx"))
	require.NoError(t, err)
	defer built.Close()

	offset, ok, err := built.Lookup(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Greater(t, offset, int64(0))
}

func TestTimestampIndex_MatchesSourceDetectsStaleness(t *testing.T) {
	dir := t.TempDir()
	csvDir := t.TempDir()
	csvPath := writeCSVFile(t, csvDir, "tape.csv", "event_type,timestamp\norder,100\n")

	idx, err := BuildTimestampIndex(csvPath, filepath.Join(dir, "idx"))
	require.NoError(t, err)

	fresh, err := idx.MatchesSource(csvPath)
	require.NoError(t, err)
	require.True(t, fresh)

	// Ensure the modification time actually advances on filesystems
	// with coarse mtime resolution.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(csvPath, []byte("event_type,timestamp\norder,100\norder,200\n"), 0o644))

	stale, err := idx.MatchesSource(csvPath)
	require.NoError(t, err)
	require.False(t, stale)
	idx.Close()
}

func TestTimestampIndex_MatchesSourceFalseWhenNeverStamped(t *testing.T) {
	dir := t.TempDir()
	csvDir := t.TempDir()
	csvPath := writeCSVFile(t, csvDir, "tape.csv", "event_type,timestamp\norder,100\n")

	idx, err := OpenTimestampIndex(filepath.Join(dir, "idx"))
	require.NoError(t, err)
	defer idx.Close()

	fresh, err := idx.MatchesSource(csvPath)
	require.NoError(t, err)
	require.False(t, fresh)
}
