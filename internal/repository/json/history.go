package jsonfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"preisradar/internal/domain/models"
	"preisradar/internal/repository"
)

// History keeps <dir>/<slug>.jsonl, one record per line and per date.
type History struct {
	Dir string
	Log *slog.Logger

	mu sync.Mutex
}

func NewHistory(dir string, log *slog.Logger) *History {
	if log == nil {
		log = slog.Default()
	}
	return &History{Dir: dir, Log: log}
}

func (h *History) path(slug string) (string, error) {
	if err := repository.CheckSlug(slug); err != nil {
		return "", fmt.Errorf("%w: %q", err, slug)
	}
	return filepath.Join(h.Dir, slug+".jsonl"), nil
}

// Upsert rewrites the log with rec in place of any line for the same date.
// Lines for other dates are kept byte for byte.
func (h *History) Upsert(ctx context.Context, slug string, rec models.HistoryRecord) error {
	if _, err := rec.Day(); err != nil {
		return fmt.Errorf("history record date %q: %w", rec.Date, err)
	}
	p, err := h.path(slug)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	lines, err := readLines(p)
	if err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	replaced := false
	for _, l := range lines {
		if lineDate(l) == rec.Date {
			if !replaced {
				buf.Write(line)
				buf.WriteByte('\n')
				replaced = true
			}
			continue
		}
		buf.Write(l)
		buf.WriteByte('\n')
	}
	if !replaced {
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := writeAtomic(ctx, p, buf.Bytes()); err != nil {
		return err
	}
	h.Log.Info("history upserted", "slug", slug, "date", rec.Date, "min", rec.Min, "replaced", replaced)
	return nil
}

func (h *History) Load(ctx context.Context, slug string) ([]models.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := h.path(slug)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	lines, err := readLines(p)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if lines == nil {
		return nil, repository.ErrNotFound
	}

	out := make([]models.HistoryRecord, 0, len(lines))
	for i, l := range lines {
		var r models.HistoryRecord
		if err := json.Unmarshal(l, &r); err != nil || r.Date == "" {
			h.Log.Warn("history line skipped", "slug", slug, "line", i+1, "err", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// readLines returns nil for a missing file and drops blank lines.
func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := make([][]byte, 0, 64)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		l := bytes.TrimSpace(sc.Bytes())
		if len(l) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), l...))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func lineDate(l []byte) string {
	var v struct {
		Date string `json:"date"`
	}
	if json.Unmarshal(l, &v) != nil {
		return ""
	}
	return v.Date
}

var _ repository.HistoryStore = (*History)(nil)
