package pgn

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessprep/internal/store"
)

const twoGamesPGN = `[Event "Test Open"]
[Site "Testville"]
[Date "2024.03.01"]
[White "Alice"]
[Black "Bob"]
[Result "1-0"]
[ECO "C50"]

1. e4 e5 2. Nf3 Nc6 3. Bc4 Bc5 1-0

[Event "Test Open"]
[Site "Testville"]
[Date "2024.03.02"]
[White "Carol"]
[Black "Dave"]
[Result "0-1"]

1. d4 d5 2. c4 e6 0-1
`

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "games.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportFile_ParsesAndStores(t *testing.T) {
	s := newTestStore(t)
	path := writeFixture(t, "games.pgn", twoGamesPGN)

	summary, err := ImportFile(s, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Inserted: 2}, summary)

	games, err := s.SearchGames(store.Filter{}, store.Pagination{})
	require.NoError(t, err)
	require.Len(t, games, 2)

	// Newest date first.
	assert.Equal(t, "Carol", games[0].White)
	assert.Equal(t, "Alice", games[1].White)
	assert.Equal(t, "C50", games[1].ECO)

	movetext, err := s.GameMovetext(games[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "e4 e5 Nf3 Nc6 Bc4 Bc5", movetext)
}

func TestImportFile_ReimportSkipsEverything(t *testing.T) {
	s := newTestStore(t)
	path := writeFixture(t, "games.pgn", twoGamesPGN)

	_, err := ImportFile(s, path, nil, nil)
	require.NoError(t, err)

	summary, err := ImportFile(s, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Skipped: 2}, summary)

	count, err := s.CountGames(store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestImportFile_MalformedGameIsCountedNotFatal(t *testing.T) {
	s := newTestStore(t)
	mixed := twoGamesPGN + `
[Event "Broken"]
[White "Mallory"]

1. zz9 xx0 huh 1-0
`
	path := writeFixture(t, "mixed.pgn", mixed)

	summary, err := ImportFile(s, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Inserted: 2, Errors: 1}, summary)
}

func TestImportFile_ZstdCompressed(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(t.TempDir(), "games.pgn.zst")
	file, err := os.Create(path)
	require.NoError(t, err)
	enc, err := zstd.NewWriter(file)
	require.NoError(t, err)
	_, err = enc.Write([]byte(twoGamesPGN))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, file.Close())

	summary, err := ImportFile(s, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Inserted: 2}, summary)
}

func TestImportFile_ProgressBracketsTheRun(t *testing.T) {
	s := newTestStore(t)
	path := writeFixture(t, "games.pgn", twoGamesPGN)

	var seen []Summary
	_, err := ImportFile(s, path, nil, func(sum Summary) { seen = append(seen, sum) })
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, Summary{}, seen[0])
	assert.Equal(t, Summary{Total: 2, Inserted: 2}, seen[len(seen)-1])
}

func TestImportFile_CorrectedExportSupersedesTruncated(t *testing.T) {
	s := newTestStore(t)

	truncated := `[Event "Club Match"]
[Site "Local"]
[Date "2024.05.05"]
[White "Erin"]
[Black "Frank"]
[Result "1-0"]

1-0
`
	full := `[Event "Club Match"]
[Site "Local"]
[Date "2024.05.05"]
[White "Erin"]
[Black "Frank"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0
`

	_, err := ImportFile(s, writeFixture(t, "truncated.pgn", truncated), nil, nil)
	require.NoError(t, err)

	summary, err := ImportFile(s, writeFixture(t, "full.pgn", full), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Inserted: 1}, summary)

	count, err := s.CountGames(store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	games, err := s.SearchGames(store.Filter{}, store.Pagination{})
	require.NoError(t, err)
	movetext, err := s.GameMovetext(games[0].ID)
	require.NoError(t, err)
	assert.Contains(t, movetext, "Qxf7#")
}

func TestWatcher_ImportsDroppedFile(t *testing.T) {
	s := newTestStore(t)
	dir := filepath.Join(t.TempDir(), "inbox")

	type result struct {
		path    string
		summary Summary
		err     error
	}
	results := make(chan result, 4)

	w, err := NewWatcher(s, dir, 200*time.Millisecond, nil, func(path string, summary Summary, err error) {
		results <- result{path, summary, err}
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Non-PGN files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a game"), 0644))

	dropped := filepath.Join(dir, "drop.pgn")
	require.NoError(t, os.WriteFile(dropped, []byte(twoGamesPGN), 0644))

	select {
	case got := <-results:
		require.NoError(t, got.err)
		assert.Equal(t, dropped, got.path)
		assert.Equal(t, Summary{Total: 2, Inserted: 2}, got.summary)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher never imported the dropped file")
	}

	count, err := s.CountGames(store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestWatcher_StopReturnsAfterFailedStart(t *testing.T) {
	s := newTestStore(t)

	// The inbox path is occupied by a regular file, so the drop directory
	// cannot be created and Start fails before the loop launches.
	path := filepath.Join(t.TempDir(), "inbox")
	require.NoError(t, os.WriteFile(path, []byte("occupied"), 0644))

	w, err := NewWatcher(s, path, 0, nil, nil)
	require.NoError(t, err)
	require.Error(t, w.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after a failed Start")
	}

	// Repeated Stop stays a no-op.
	w.Stop()
}
