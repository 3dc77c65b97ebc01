package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cesuchat/internal/app/hub"
)

// Groups provides group membership data and group message persistence.
// It implements hub.GroupStore.
type Groups struct {
	pool *pgxpool.Pool
}

// NewGroups constructs a Groups store over the given pool.
func NewGroups(pool *pgxpool.Pool) *Groups {
	return &Groups{pool: pool}
}

// FindGroupByID fetches a group together with its member identities.
// It returns (nil, nil) when no group matches.
func (s *Groups) FindGroupByID(ctx context.Context, groupID int64) (*hub.Group, error) {
	group := &hub.Group{ID: groupID}

	const groupQuery = `SELECT name FROM groups WHERE id = $1`
	if err := s.pool.QueryRow(ctx, groupQuery, groupID).Scan(&group.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select group: %w", err)
	}

	const membersQuery = `
		SELECT u.id, u.email
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY u.id`

	rows, err := s.pool.Query(ctx, membersQuery, groupID)
	if err != nil {
		return nil, fmt.Errorf("select group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var member hub.Identity
		if err := rows.Scan(&member.UserID, &member.Email); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		group.Members = append(group.Members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}

	return group, nil
}

// GetMessagesByGroupID returns the group's stored messages, oldest first.
func (s *Groups) GetMessagesByGroupID(ctx context.Context, groupID int64) ([]hub.GroupMessage, error) {
	const query = `
		SELECT id, group_id, sender_id, content, created_at
		FROM group_messages
		WHERE group_id = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("select group messages: %w", err)
	}
	defer rows.Close()

	var messages []hub.GroupMessage
	for rows.Next() {
		var msg hub.GroupMessage
		if err := rows.Scan(&msg.ID, &msg.GroupID, &msg.SenderID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group messages: %w", err)
	}

	return messages, nil
}

// AddMessageToGroup inserts a message into the group and returns the persisted record.
func (s *Groups) AddMessageToGroup(ctx context.Context, groupID int64, sender hub.User, content string) (hub.GroupMessage, error) {
	msg := hub.GroupMessage{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		SenderID:  sender.ID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	const query = `
		INSERT INTO group_messages (id, group_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.pool.Exec(ctx, query, msg.ID, msg.GroupID, msg.SenderID, msg.Content, msg.CreatedAt); err != nil {
		return hub.GroupMessage{}, fmt.Errorf("insert group message: %w", err)
	}

	return msg, nil
}
