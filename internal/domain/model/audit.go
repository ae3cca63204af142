package model

import (
	"time"

	"bot_gatekeeper/internal/domain/enums"
)

// AuditEntry is one line of the append-only per-user communication log.
type AuditEntry struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	TGID        int64             `json:"tg_id"`
	Username    string            `json:"username,omitempty"`
	ChatID      int64             `json:"chat_id"`
	IsMember    bool              `json:"is_member"`
	Action      enums.AuditAction `json:"action"`
	MessageKind enums.MessageKind `json:"message_kind"`
}
