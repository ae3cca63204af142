package ui

import (
	"fmt"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

func StartMessage(firstName string) string {
	if firstName == "" {
		return "Hello! Send me a message and I will pass it on."
	}
	return fmt.Sprintf("Hello, %s! Send me a message and I will pass it on.", firstName)
}

func MembershipPrompt(channelLink, groupLink string) string {
	text := "To contact me through this bot you need to be a member of the required channels."
	if channelLink != "" {
		text += "\nChannel: " + channelLink
	}
	if groupLink != "" {
		text += "\nGroup: " + groupLink
	}
	text += "\nTap the button below once you have joined."
	return text
}

const MembershipConfirmed = "Thanks, your membership is confirmed. Send your message again."

const MembershipStillMissing = "I still can't confirm your membership. Join the required channels and try again."

const IntroductionPrompt = "Before your messages are passed on, please introduce yourself.\n" +
	"Send a message starting with INTRODUCTION: followed by a few words about yourself."

const IntroductionPending = "Thanks! Your introduction has been passed to the operators for review. " +
	"You will be able to send messages once it is approved."

const IntroductionApproved = "Your introduction has been approved. You can send messages now."

const IntroductionRejected = "Your introduction was not approved. You can submit a new one with INTRODUCTION: ..."

func BlockedNotice(reason enums.BlockReason) string {
	return fmt.Sprintf("Your message was not delivered and you have been blocked (%s). The block expires automatically.", reason)
}

func ConsentPrompt(consentType enums.ConsentType) string {
	switch consentType {
	case enums.ConsentMigration:
		return "We are moving members to our new group. Do you agree to be added?"
	case enums.ConsentContactSave:
		return "May we save your contact details so operators can reach you?"
	default:
		return fmt.Sprintf("Your consent is required (%s) before your messages are passed on. Do you agree?", consentType)
	}
}

const ConsentThanks = "Thanks, your choice has been recorded."

const OfflineNotice = "The operators are currently offline. Your message has been delivered and will be answered later."

const DeliveryFailedNotice = "Your message could not be delivered right now. Please try again later."

const AdminOnly = "Only administrators can use this command."

const UnknownCommand = "Unknown command. Use /start."

const MigrationConfirmPrompt = "Ready to migrate members to the new group. Proceed?"

const MigrationCancelled = "Migration cancelled."

const MigrationStarted = "Migration started. Progress updates will follow."

const LeaveRequestReceived = "Your leave request has been passed to the operators."

const LeaveConfirmed = "You have been removed from the approved list. Goodbye!"

const LeaveDenied = "Your leave request was declined by the operators."

func IntroductionReview(intro model.PendingIntroduction) string {
	handle := "(no username)"
	if intro.Username != "" {
		handle = "@" + intro.Username
	}
	return fmt.Sprintf("New introduction from %s %s (ID %d):\n%s", intro.Name, handle, intro.TGID, intro.Introduction)
}

func LeaveReview(sender model.Sender) string {
	handle := "(no username)"
	if sender.Username != "" {
		handle = "@" + sender.Username
	}
	return fmt.Sprintf("Leave request from %s %s (ID %d). Confirm?", sender.FirstName, handle, sender.TGID)
}

func MemberLeft(sender model.Sender) string {
	handle := "(no username)"
	if sender.Username != "" {
		handle = "@" + sender.Username
	}
	return fmt.Sprintf("%s %s (ID %d) left the group; their approval was revoked.", sender.FirstName, handle, sender.TGID)
}
