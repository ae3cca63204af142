package model

import (
	"time"

	"bot_gatekeeper/internal/domain/enums"
)

// Sender identifies the platform user behind an inbound message.
type Sender struct {
	TGID      int64
	Username  string
	FirstName string
	LastName  string
}

// InboundMessage is the pipeline's view of one incoming message. Media
// payloads are downloaded before admission so the classifier can see them.
type InboundMessage struct {
	MessageID int
	ChatID    int64
	Kind      enums.MessageKind
	Text      string
	Caption   string
	FileName  string
	HasMedia  bool
	MediaData []byte
	SentAt    time.Time
}
