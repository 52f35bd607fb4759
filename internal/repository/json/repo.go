// Package jsonfile stores snapshots, history logs and labels as files, one
// per product.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"preisradar/internal/repository"
)

// Snapshots keeps <dir>/<slug>.json.
type Snapshots struct {
	Dir string
	Log *slog.Logger
}

func NewSnapshots(dir string, log *slog.Logger) *Snapshots {
	if log == nil {
		log = slog.Default()
	}
	return &Snapshots{Dir: dir, Log: log}
}

func (r *Snapshots) path(slug string) (string, error) {
	if err := repository.CheckSlug(slug); err != nil {
		return "", fmt.Errorf("%w: %q", err, slug)
	}
	return filepath.Join(r.Dir, slug+".json"), nil
}

func (r *Snapshots) Save(ctx context.Context, slug string, snap repository.Snapshot) error {
	p, err := r.path(slug)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(ctx, p, append(b, '\n')); err != nil {
		return err
	}
	r.Log.Info("snapshot saved", "path", p, "count", len(snap.Offers))
	return nil
}

func (r *Snapshots) Load(ctx context.Context, slug string) (repository.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return repository.Snapshot{}, err
	}
	p, err := r.path(slug)
	if err != nil {
		return repository.Snapshot{}, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return repository.Snapshot{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.Snapshot{}, err
	}
	var snap repository.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return repository.Snapshot{}, fmt.Errorf("decode %s: %w", p, err)
	}
	return snap, nil
}

// List returns the slugs that have a snapshot, sorted.
func (r *Snapshots) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slug := strings.TrimSuffix(name, ".json")
		if repository.CheckSlug(slug) == nil {
			out = append(out, slug)
		}
	}
	sort.Strings(out)
	return out, nil
}

// writeAtomic writes to a temp file and renames it over path, so readers
// never see a partial file.
func writeAtomic(ctx context.Context, path string, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("jsonfile repo: empty path")
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

var _ repository.SnapshotStore = (*Snapshots)(nil)
