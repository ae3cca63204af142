package model

import "time"

// PendingIntroduction is a join request awaiting operator review. At most
// one exists per user; a resubmission overwrites the previous record.
type PendingIntroduction struct {
	TGID         int64     `json:"tg_id"`
	Name         string    `json:"name"`
	Username     string    `json:"username,omitempty"`
	Introduction string    `json:"introduction"`
	SubmittedAt  time.Time `json:"submitted_at"`
}
