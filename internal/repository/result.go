package repository

import (
	"context"
	"errors"
	"time"

	"preisradar/internal/domain/models"
)

var ErrNotFound = errors.New("not found")

// TimestampLayout is ISO-8601 UTC with second precision.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Snapshot is the replace-on-write result of one fetch run for a product.
type Snapshot struct {
	FetchedAt string         `json:"fetched_at"`
	Offers    []models.Offer `json:"offers"`
}

func NewSnapshot(at time.Time, offers []models.Offer) Snapshot {
	if offers == nil {
		offers = []models.Offer{}
	}
	return Snapshot{FetchedAt: at.UTC().Format(TimestampLayout), Offers: offers}
}

type SnapshotStore interface {
	Save(ctx context.Context, slug string, snap Snapshot) error
	Load(ctx context.Context, slug string) (Snapshot, error)
	List(ctx context.Context) ([]string, error)
}

type HistoryStore interface {
	// Upsert replaces the record for rec.Date or appends it.
	Upsert(ctx context.Context, slug string, rec models.HistoryRecord) error
	Load(ctx context.Context, slug string) ([]models.HistoryRecord, error)
}

type LabelStore interface {
	// Load returns an empty set when nothing was labeled yet.
	Load(ctx context.Context, slug string) (models.LabelSet, error)
	Set(ctx context.Context, slug, id string, relevant bool) error
}

var ErrInvalidSlug = errors.New("invalid slug")

// CheckSlug rejects slugs that cannot be used as a file name.
func CheckSlug(slug string) error {
	if slug == "" || len(slug) > 128 || slug[0] == '.' || slug[0] == '-' {
		return ErrInvalidSlug
	}
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return ErrInvalidSlug
		}
	}
	return nil
}
