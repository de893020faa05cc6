package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ayane-t/mochimono/internal/apperr"
)

// SetImages stores the full-size image and thumbnail for an item.
// Either payload may be nil to leave that slot empty. The payloads
// are owned by the record and removed with it.
func (s *Store) SetImages(ctx context.Context, itemID string, image, thumbnail []byte) error {
	if _, ok, err := s.Get(ctx, itemID); err != nil {
		return err
	} else if !ok {
		return apperr.NotFound("item", itemID)
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO item_images (item_id, image, thumbnail)
		 VALUES (?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET
			image = excluded.image,
			thumbnail = excluded.thumbnail`,
		itemID, image, thumbnail)
	if err != nil {
		return fmt.Errorf("failed to store images for item %s: %w", itemID, err)
	}
	return nil
}

// GetImage returns the full-size image payload, or ok=false when the
// item has none.
//
// The returned slice is the only in-memory copy; callers holding it
// for preview must drop the reference as soon as display is done.
func (s *Store) GetImage(ctx context.Context, itemID string) ([]byte, bool, error) {
	return s.getPayload(ctx, itemID, "image")
}

// GetThumbnail returns the thumbnail payload, or ok=false when the
// item has none. Same ownership contract as GetImage.
func (s *Store) GetThumbnail(ctx context.Context, itemID string) ([]byte, bool, error) {
	return s.getPayload(ctx, itemID, "thumbnail")
}

func (s *Store) getPayload(ctx context.Context, itemID, column string) ([]byte, bool, error) {
	var data []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT `+column+` FROM item_images WHERE item_id = ?`, itemID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s for item %s: %w", column, itemID, err)
	}
	if data == nil {
		return nil, false, nil
	}
	return data, true, nil
}
