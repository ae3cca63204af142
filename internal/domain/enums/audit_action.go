package enums

type AuditAction string

const (
	AuditActionDelivered            AuditAction = "DELIVERED"
	AuditActionSilentlyIgnored      AuditAction = "SILENTLY_IGNORED"
	AuditActionMembershipChallenge  AuditAction = "MEMBERSHIP_CHALLENGE"
	AuditActionIntroductionRequired AuditAction = "INTRODUCTION_REQUIRED"
	AuditActionIntroductionReceived AuditAction = "INTRODUCTION_RECEIVED"
	AuditActionConsentRequired      AuditAction = "CONSENT_REQUIRED"
	AuditActionContentBlocked       AuditAction = "CONTENT_BLOCKED"
	AuditActionDeliveryFailed       AuditAction = "DELIVERY_FAILED"
)
