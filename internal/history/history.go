package history

import (
	"context"
	"sort"

	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/pkg/models"
)

// Reader provides read-only access over the append-only enhancement
// history for a file, used by the get_validation_history RPC method. The
// enhancer's rollback path reads records through the store directly.
type Reader struct {
	store store.EnhancementStore
}

// NewReader wraps an EnhancementStore for history queries.
func NewReader(s store.EnhancementStore) *Reader {
	return &Reader{store: s}
}

// ForFile returns a file's enhancement history, most recent first.
func (r *Reader) ForFile(ctx context.Context, filePath string, limit int) ([]models.EnhancementRecord, error) {
	recs, err := r.store.ListEnhancementRecords(ctx, filePath, limit)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].AppliedAt.After(recs[j].AppliedAt)
	})
	return recs, nil
}

// LatestRollbackable returns the most recent record for filePath that
// has not already been rolled back, or nil if none exists.
func (r *Reader) LatestRollbackable(ctx context.Context, filePath string) (*models.EnhancementRecord, error) {
	recs, err := r.ForFile(ctx, filePath, 0)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if !recs[i].RolledBack {
			return &recs[i], nil
		}
	}
	return nil, nil
}
