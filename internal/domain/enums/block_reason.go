package enums

type BlockReason string

const (
	BlockReasonNone                 BlockReason = ""
	BlockReasonAlreadyBlocked       BlockReason = "already_blocked"
	BlockReasonInappropriateContent BlockReason = "inappropriate_content"
	BlockReasonSexualContent        BlockReason = "sexual_content"
	BlockReasonSpam                 BlockReason = "spam"
	BlockReasonInappropriateMedia   BlockReason = "inappropriate_media"
)
