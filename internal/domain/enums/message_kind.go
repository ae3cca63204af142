package enums

type MessageKind string

const (
	MessageText      MessageKind = "text"
	MessagePhoto     MessageKind = "photo"
	MessageVideo     MessageKind = "video"
	MessageAnimation MessageKind = "animation"
	MessageDocument  MessageKind = "document"
	MessageOther     MessageKind = "other"
)
