package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
)

// SeedRecord inserts rec as-is, including empty fields, so stale records can be staged.
func SeedRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, rec *types.Record) *types.Record {
	tb.Helper()
	if rec.VideoURL == "" {
		rec.VideoURL = "https://www.youtube.com/watch?v=" + rec.VideoKey
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed insight record: %v", err)
	}
	return rec
}

func MustJSON(tb testing.TB, v interface{}) []byte {
	tb.Helper()
	b, err := types.EncodeJSON(v)
	if err != nil {
		tb.Fatalf("encode json: %v", err)
	}
	return b
}
