/*
Package store provides the PostgreSQL-backed implementations of the hub's
collaborator interfaces: the message store, the group store, and the user store.
*/
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cesuchat/internal/app/hub"
)

// Messages persists direct messages. It implements hub.MessageStore.
type Messages struct {
	pool *pgxpool.Pool
}

// NewMessages constructs a Messages store over the given pool.
func NewMessages(pool *pgxpool.Pool) *Messages {
	return &Messages{pool: pool}
}

// CreateMessage inserts a direct message and returns the persisted record.
func (s *Messages) CreateMessage(ctx context.Context, req hub.MessageRequest, senderID int64) (hub.PersistedMessage, error) {
	msg := hub.PersistedMessage{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
		CreatedAt:   time.Now().UTC(),
	}

	const query = `
		INSERT INTO messages (id, sender_id, recipient_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.pool.Exec(ctx, query, msg.ID, msg.SenderID, msg.RecipientID, msg.Content, msg.CreatedAt); err != nil {
		return hub.PersistedMessage{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}
