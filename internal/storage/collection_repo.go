package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// maxQueryParams bounds the number of IN (...) placeholders per statement.
const maxQueryParams = 500

// CollectionRepository handles a user's owned card quantities.
type CollectionRepository interface {
	// OwnedCardIDs returns the subset of cardIDs the user owns with quantity > 0.
	OwnedCardIDs(ctx context.Context, userID string, cardIDs []int64) (map[int64]struct{}, error)

	// SetQuantity inserts or updates the quantity of one card, creating the user
	// when needed.
	SetQuantity(ctx context.Context, userID string, cardID int64, quantity int) error
}

type collectionRepository struct {
	db querier
}

// NewCollectionRepository creates a new collection repository.
func NewCollectionRepository(db *sql.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

func (r *collectionRepository) OwnedCardIDs(ctx context.Context, userID string, cardIDs []int64) (map[int64]struct{}, error) {
	owned := map[int64]struct{}{}
	for start := 0; start < len(cardIDs); start += maxQueryParams {
		chunk := cardIDs[start:min(start+maxQueryParams, len(cardIDs))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, userID)
		for _, id := range chunk {
			args = append(args, id)
		}
		query := `SELECT card_id FROM user_collection
			WHERE user_id = ? AND quantity > 0 AND card_id IN (?` + strings.Repeat(",?", len(chunk)-1) + `)`

		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query owned cards: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan owned card: %w", err)
			}
			owned[id] = struct{}{}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating owned cards: %w", err)
		}
	}
	return owned, nil
}

func (r *collectionRepository) SetQuantity(ctx context.Context, userID string, cardID int64, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity must be >= 0, got %d", quantity)
	}
	if err := ensureUser(ctx, r.db, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_collection (user_id, card_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, card_id) DO UPDATE SET quantity = excluded.quantity`,
		userID, cardID, quantity)
	if err != nil {
		return fmt.Errorf("failed to set card quantity: %w", err)
	}
	return nil
}

func ensureUser(ctx context.Context, db querier, userID string) error {
	if _, err := db.ExecContext(ctx, `INSERT INTO users (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}
