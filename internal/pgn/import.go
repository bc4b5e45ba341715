// Package pgn ingests PGN files into the games store, one transactional run
// per file, and can watch a drop directory for new files.
package pgn

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/notnil/chess"
	"go.uber.org/zap"

	"chessprep/internal/store"
)

const (
	progressGamesInterval = 1000
	progressTimeInterval  = 300 * time.Millisecond
)

// Summary counts the outcome of one import run. Errors are games that failed
// to parse; they never abort the run.
type Summary struct {
	Total    int
	Inserted int
	Skipped  int
	Errors   int
}

// ProgressFunc receives the running summary: once before the first game, then
// every thousand games or 300ms, then once after commit.
type ProgressFunc func(Summary)

// zstReadCloser pairs a zstd decoder with the file beneath it.
type zstReadCloser struct {
	*zstd.Decoder
	file *os.File
}

func (z *zstReadCloser) Close() error {
	z.Decoder.Close()
	return z.file.Close()
}

// openReader opens plain or zstd-compressed PGN by file extension.
func openReader(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".zst") {
		return file, nil
	}

	dec, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
	}
	return &zstReadCloser{Decoder: dec, file: file}, nil
}

func tagValue(game *chess.Game, key string) string {
	if tp := game.GetTagPair(key); tp != nil {
		return tp.Value
	}
	return ""
}

// movetext renders the game's moves as space-joined SAN with no move numbers
// or annotations, the canonical storage form.
func movetext(game *chess.Game) string {
	moves := game.Moves()
	if len(moves) == 0 {
		return ""
	}
	positions := game.Positions()
	sans := make([]string, 0, len(moves))
	for i, mv := range moves {
		sans = append(sans, chess.AlgebraicNotation{}.Encode(positions[i], mv))
	}
	return strings.Join(sans, " ")
}

// parseGameChunk parses the text of one game. A chunk that does not contain a
// valid game reports ok == false.
func parseGameChunk(chunk string) (store.Game, bool) {
	scanner := chess.NewScanner(strings.NewReader(chunk))
	if !scanner.Scan() {
		return store.Game{}, false
	}
	game := scanner.Next()
	if game == nil {
		return store.Game{}, false
	}

	return store.Game{
		Event:    tagValue(game, "Event"),
		Site:     tagValue(game, "Site"),
		Date:     tagValue(game, "Date"),
		White:    tagValue(game, "White"),
		Black:    tagValue(game, "Black"),
		Result:   tagValue(game, "Result"),
		ECO:      tagValue(game, "ECO"),
		Movetext: movetext(game),
	}, true
}

func ingest(tx *store.ImportTx, chunk string, summary *Summary) error {
	summary.Total++

	game, ok := parseGameChunk(chunk)
	if !ok {
		summary.Errors++
		return nil
	}

	inserted, err := tx.Insert(game)
	if err != nil {
		return err
	}
	if inserted {
		summary.Inserted++
	} else {
		summary.Skipped++
	}
	return nil
}

func maybeEmitProgress(summary Summary, lastEmit *time.Time, onProgress ProgressFunc) {
	if summary.Total == 0 {
		return
	}
	if summary.Total%progressGamesInterval == 0 || time.Since(*lastEmit) >= progressTimeInterval {
		onProgress(summary)
		*lastEmit = time.Now()
	}
}

// ImportFile imports every game in the file at path. Files are split into
// game chunks on "[Event " header lines so one malformed game cannot poison
// its neighbors. The whole run commits atomically; parse failures are only
// counted, storage failures roll the run back.
func ImportFile(st *store.Store, path string, log *zap.Logger, onProgress ProgressFunc) (Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if onProgress == nil {
		onProgress = func(Summary) {}
	}

	reader, err := openReader(path)
	if err != nil {
		return Summary{}, err
	}
	defer reader.Close()

	tx, err := st.BeginImport()
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	onProgress(summary)
	lastEmit := time.Now()

	flush := func(chunk string) error {
		if strings.TrimSpace(chunk) == "" {
			return nil
		}
		if err := ingest(tx, chunk, &summary); err != nil {
			return err
		}
		maybeEmitProgress(summary, &lastEmit, onProgress)
		return nil
	}

	br := bufio.NewReader(reader)
	var chunk strings.Builder
	for {
		line, readErr := br.ReadString('\n')
		if line != "" {
			if strings.HasPrefix(line, "[Event ") && strings.TrimSpace(chunk.String()) != "" {
				if err := flush(chunk.String()); err != nil {
					tx.Rollback()
					return summary, err
				}
				chunk.Reset()
			}
			chunk.WriteString(line)
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				tx.Rollback()
				return summary, fmt.Errorf("read %s: %w", path, readErr)
			}
			break
		}
	}
	if err := flush(chunk.String()); err != nil {
		tx.Rollback()
		return summary, err
	}

	if err := tx.Commit(); err != nil {
		return summary, err
	}
	onProgress(summary)

	log.Info("pgn import finished",
		zap.String("path", path),
		zap.Int("total", summary.Total),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors))
	return summary, nil
}
