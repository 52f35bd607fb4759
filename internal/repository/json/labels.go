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
	"strings"
	"sync"

	"preisradar/internal/domain/models"
	"preisradar/internal/repository"
)

// Labels keeps <dir>/<slug>.json as {"<offer id>": true|false}.
type Labels struct {
	Dir string
	Log *slog.Logger

	mu sync.Mutex
}

func NewLabels(dir string, log *slog.Logger) *Labels {
	if log == nil {
		log = slog.Default()
	}
	return &Labels{Dir: dir, Log: log}
}

func (l *Labels) path(slug string) (string, error) {
	if err := repository.CheckSlug(slug); err != nil {
		return "", fmt.Errorf("%w: %q", err, slug)
	}
	return filepath.Join(l.Dir, slug+".json"), nil
}

func (l *Labels) Load(ctx context.Context, slug string) (models.LabelSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.path(slug)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return readLabels(p)
}

func (l *Labels) Set(ctx context.Context, slug, id string, relevant bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("label: empty offer id")
	}
	p, err := l.path(slug)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	set, err := readLabels(p)
	if err != nil {
		return err
	}
	set[id] = relevant

	b, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(ctx, p, append(b, '\n')); err != nil {
		return err
	}
	l.Log.Info("label saved", "slug", slug, "id", id, "relevant", relevant, "count", len(set))
	return nil
}

func readLabels(path string) (models.LabelSet, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.LabelSet{}, nil
	}
	if err != nil {
		return nil, err
	}
	set := models.LabelSet{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return set, nil
	}
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return set, nil
}

var _ repository.LabelStore = (*Labels)(nil)
