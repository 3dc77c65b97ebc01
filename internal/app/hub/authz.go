/*
Package hub contains the core logic of the realtime messaging hub.

This file defines the Gate, which decides whether an identity may join a group
room by consulting group membership data. The check fails closed: lookup errors
and missing groups both deny access.
*/
package hub

import (
	"context"

	"github.com/rs/zerolog"

	"cesuchat/internal/pkg/logx"
)

// Gate is the authorization check in front of group rooms. Direct rooms carry
// no gate beyond holding a verified identity.
type Gate struct {
	groups GroupStore
	logger zerolog.Logger
}

// NewGate constructs a Gate backed by the given group store.
func NewGate(groups GroupStore) *Gate {
	return &Gate{
		groups: groups,
		logger: logx.Logger().With().Str("component", "Gate").Logger(),
	}
}

// CanJoinGroup reports whether identity is among the group's members. Any
// lookup error or missing group denies access; the error never reaches the
// caller as a grant.
func (g *Gate) CanJoinGroup(ctx context.Context, identity Identity, groupID int64) bool {
	group, err := g.groups.FindGroupByID(ctx, groupID)
	if err != nil {
		g.logger.Warn().
			Int64("group_id", groupID).
			Int64("user_id", identity.UserID).
			Err(err).
			Msg("Group lookup failed, denying access.")
		return false
	}

	if group == nil {
		return false
	}

	for _, member := range group.Members {
		if member.UserID == identity.UserID {
			return true
		}
	}

	return false
}
