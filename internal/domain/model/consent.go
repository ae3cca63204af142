package model

import (
	"time"

	"bot_gatekeeper/internal/domain/enums"
)

// ConsentRecord holds the latest consent decision for one (user, type)
// pair. A record written under an older schema version reads as absent.
type ConsentRecord struct {
	TGID      int64               `json:"tg_id"`
	Type      enums.ConsentType   `json:"consent_type"`
	Status    enums.ConsentStatus `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Version   string              `json:"version"`
}
