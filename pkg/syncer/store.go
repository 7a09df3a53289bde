package syncer

import (
	"context"

	"ankispeech/pkg/model"
)

// Store is the record store the syncer reads cards from and writes audio to.
type Store interface {
	Find(ctx context.Context, query string) ([]int64, error)
	Fetch(ctx context.Context, ids []int64) ([]model.Card, error)
	Update(ctx context.Context, noteID int64, fields map[string]string) error
	StoreMedia(ctx context.Context, filename string, data []byte) error
}
