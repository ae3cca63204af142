package app

import (
	"fmt"
	"strconv"
	"strings"

	"bot_gatekeeper/internal/domain/enums"
)

// Callback data is decoded exactly once at the boundary into a tagged
// Command; handlers dispatch on the concrete type and never re-parse the
// raw string.

const (
	callbackPrefixMembership = "mem"
	callbackPrefixApproval   = "appr"
	callbackPrefixConsent    = "cons"
	callbackPrefixMigration  = "mig"
	callbackPrefixLeave      = "leave"
)

// noRequestID marks consent prompts that are not awaited by a blocked
// caller; the answer is only recorded.
const noRequestID = "-"

type Command interface {
	callbackCommand()
}

type MembershipRecheck struct{}

type ApprovalDecision struct {
	TGID    int64
	Approve bool
}

type ConsentAnswer struct {
	Type      enums.ConsentType
	Granted   bool
	RequestID string
}

type MigrationConfirm struct {
	Proceed bool
}

type LeaveDecision struct {
	TGID    int64
	Confirm bool
}

func (MembershipRecheck) callbackCommand() {}
func (ApprovalDecision) callbackCommand()  {}
func (ConsentAnswer) callbackCommand()     {}
func (MigrationConfirm) callbackCommand()  {}
func (LeaveDecision) callbackCommand()     {}

func membershipRecheckData() string {
	return callbackPrefixMembership + ":check"
}

func approvalData(tgID int64, approve bool) string {
	verdict := "no"
	if approve {
		verdict = "ok"
	}
	return fmt.Sprintf("%s:%s:%d", callbackPrefixApproval, verdict, tgID)
}

func consentData(consentType enums.ConsentType, granted bool, requestID string) string {
	answer := "no"
	if granted {
		answer = "yes"
	}
	if requestID == "" {
		requestID = noRequestID
	}
	return fmt.Sprintf("%s:%s:%s:%s", callbackPrefixConsent, consentType, answer, requestID)
}

func migrationData(proceed bool) string {
	if proceed {
		return callbackPrefixMigration + ":confirm"
	}
	return callbackPrefixMigration + ":cancel"
}

func leaveData(tgID int64, confirm bool) string {
	verdict := "no"
	if confirm {
		verdict = "ok"
	}
	return fmt.Sprintf("%s:%s:%d", callbackPrefixLeave, verdict, tgID)
}

// DecodeCommand parses raw callback data. Unknown or malformed data is an
// error, never a silent no-op.
func DecodeCommand(raw string) (Command, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed callback data %q", raw)
	}

	switch parts[0] {
	case callbackPrefixMembership:
		if parts[1] != "check" || len(parts) != 2 {
			return nil, fmt.Errorf("unknown membership callback %q", raw)
		}
		return MembershipRecheck{}, nil

	case callbackPrefixApproval:
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed approval callback %q", raw)
		}
		tgID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse approval callback %q: %w", raw, err)
		}
		switch parts[1] {
		case "ok":
			return ApprovalDecision{TGID: tgID, Approve: true}, nil
		case "no":
			return ApprovalDecision{TGID: tgID, Approve: false}, nil
		}
		return nil, fmt.Errorf("unknown approval verdict %q", raw)

	case callbackPrefixConsent:
		if len(parts) != 4 {
			return nil, fmt.Errorf("malformed consent callback %q", raw)
		}
		consentType, ok := enums.ParseConsentType(parts[1])
		if !ok {
			return nil, fmt.Errorf("unknown consent type in callback %q", raw)
		}
		var granted bool
		switch parts[2] {
		case "yes":
			granted = true
		case "no":
			granted = false
		default:
			return nil, fmt.Errorf("unknown consent answer %q", raw)
		}
		return ConsentAnswer{Type: consentType, Granted: granted, RequestID: parts[3]}, nil

	case callbackPrefixMigration:
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed migration callback %q", raw)
		}
		switch parts[1] {
		case "confirm":
			return MigrationConfirm{Proceed: true}, nil
		case "cancel":
			return MigrationConfirm{Proceed: false}, nil
		}
		return nil, fmt.Errorf("unknown migration callback %q", raw)

	case callbackPrefixLeave:
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed leave callback %q", raw)
		}
		tgID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse leave callback %q: %w", raw, err)
		}
		switch parts[1] {
		case "ok":
			return LeaveDecision{TGID: tgID, Confirm: true}, nil
		case "no":
			return LeaveDecision{TGID: tgID, Confirm: false}, nil
		}
		return nil, fmt.Errorf("unknown leave verdict %q", raw)
	}

	return nil, fmt.Errorf("unknown callback prefix %q", raw)
}
