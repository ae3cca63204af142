package model

import (
	"time"

	"bot_gatekeeper/internal/domain/enums"
)

// UserRecord is the durable per-user state. Blocked implies BlockTime is set;
// a block expires 24 hours after BlockTime and is cleared on the next read.
type UserRecord struct {
	TGID        int64             `json:"tg_id"`
	Username    string            `json:"username,omitempty"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	FirstSeen   time.Time         `json:"first_seen"`
	Welcomed    bool              `json:"welcomed"`
	Blocked     bool              `json:"blocked"`
	BlockReason enums.BlockReason `json:"block_reason,omitempty"`
	BlockTime   *time.Time        `json:"block_time,omitempty"`
	UnblockTime *time.Time        `json:"unblock_time,omitempty"`
}
