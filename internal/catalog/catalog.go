// Package catalog loads product definitions from content/games/*.yaml.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"preisradar/internal/domain/models"
	"preisradar/internal/repository"
)

// Load reads every *.yaml / *.yml file in dir, sorted by slug. Files that
// fail to parse or lack a valid slug are logged and skipped; a duplicate
// slug keeps the first file.
func Load(dir string, log *slog.Logger) ([]models.Product, error) {
	if log == nil {
		log = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]models.Product, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		p, err := LoadFile(path)
		if err != nil {
			log.Warn("product skipped", "file", path, "err", err)
			continue
		}
		if prev, dup := seen[p.Slug]; dup {
			log.Warn("duplicate product slug skipped", "slug", p.Slug, "file", path, "first", prev)
			continue
		}
		seen[p.Slug] = path
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func LoadFile(path string) (models.Product, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return models.Product{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (models.Product, error) {
	var p models.Product
	if err := yaml.Unmarshal(b, &p); err != nil {
		return models.Product{}, fmt.Errorf("decode product: %w", err)
	}
	p.Slug = strings.TrimSpace(p.Slug)
	p.Title = strings.TrimSpace(p.Title)
	p.CategoryID = strings.TrimSpace(p.CategoryID)
	if p.Slug == "" {
		return models.Product{}, errors.New("product has no slug")
	}
	if err := repository.CheckSlug(p.Slug); err != nil {
		return models.Product{}, fmt.Errorf("%w: %q", err, p.Slug)
	}
	if p.PriceFilter.Min < 0 || p.PriceFilter.Max < 0 ||
		(p.PriceFilter.Max > 0 && p.PriceFilter.Min > p.PriceFilter.Max) {
		return models.Product{}, fmt.Errorf("invalid price_filter min=%v max=%v", p.PriceFilter.Min, p.PriceFilter.Max)
	}
	return p, nil
}
