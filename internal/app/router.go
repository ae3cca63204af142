package app

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
	"bot_gatekeeper/internal/infra/telegram"
	gatesvc "bot_gatekeeper/internal/services/gate"
	"bot_gatekeeper/internal/services/membership"
	"bot_gatekeeper/internal/ui"
)

func (a *App) routeUpdate(ctx context.Context, client *telegram.Client, update tgbotapi.Update) {
	if update.Message != nil {
		a.routeMessage(ctx, client, update.Message)
	}
	if update.CallbackQuery != nil {
		a.handleCallback(ctx, client, update.CallbackQuery)
	}
}

func (a *App) routeMessage(ctx context.Context, client *telegram.Client, message *tgbotapi.Message) {
	if message == nil || message.Chat == nil {
		return
	}

	if !message.Chat.IsPrivate() {
		if message.LeftChatMember != nil {
			a.handleMemberLeft(ctx, client, message)
		}
		return
	}
	if message.From == nil || message.From.IsBot {
		return
	}

	if message.IsCommand() {
		a.handleCommand(ctx, client, message)
		return
	}

	a.handleUserMessage(ctx, client, message)
}

func (a *App) handleCommand(ctx context.Context, client *telegram.Client, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	fromID := message.From.ID

	switch message.Command() {
	case "start":
		if _, _, err := a.usersService.Touch(ctx, senderOf(message.From)); err != nil {
			a.logger.Error("touch user on /start", "tg_id", fromID, "err", err)
		}
		a.sendText(client, chatID, ui.StartMessage(message.From.FirstName))

	case "leave":
		a.handleLeaveRequest(ctx, client, message)

	case "status":
		if !a.gateService.IsAdmin(fromID) {
			a.sendText(client, chatID, ui.AdminOnly)
			return
		}
		online := a.operatorsAvailable()
		state := "online"
		if !online {
			state = "offline"
		}
		a.sendText(client, chatID, "Operators are currently "+state+".")

	case "toggle_status":
		if !a.gateService.IsAdmin(fromID) {
			a.sendText(client, chatID, ui.AdminOnly)
			return
		}
		online := a.toggleAvailability()
		state := "online"
		if !online {
			state = "offline"
		}
		a.sendText(client, chatID, "Operator status is now "+state+".")

	case "log_report":
		if !a.gateService.IsAdmin(fromID) {
			a.sendText(client, chatID, ui.AdminOnly)
			return
		}
		report, err := a.auditService.Report(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			a.logger.Error("build log report", "err", err)
			a.sendText(client, chatID, "Could not build the report, try again later.")
			return
		}
		a.sendText(client, chatID, report)

	case "migrate":
		if !a.gateService.IsAdmin(fromID) {
			a.sendText(client, chatID, ui.AdminOnly)
			return
		}
		a.sendInline(client, chatID, ui.MigrationConfirmPrompt, [][]telegram.InlineButton{{
			{Text: "Start ✅", Data: migrationData(true)},
			{Text: "Cancel ❌", Data: migrationData(false)},
		}})

	default:
		a.sendText(client, chatID, ui.UnknownCommand)
	}
}

func (a *App) handleUserMessage(ctx context.Context, client *telegram.Client, message *tgbotapi.Message) {
	sender := senderOf(message.From)
	inbound := a.buildInbound(ctx, client, message)

	decision := a.gateService.Admit(ctx, sender, inbound)

	switch decision.Outcome {
	case gatesvc.Pass:
		a.deliver(ctx, client, sender, inbound)

	case gatesvc.Block:
		if decision.BlockReason == enums.BlockReasonAlreadyBlocked {
			// Silently ignored; the sender gets no feedback.
			return
		}
		a.deliveries[client].NotifyViolation(ctx, sender, inbound, decision.BlockReason)
		a.sendText(client, inbound.ChatID, ui.BlockedNotice(decision.BlockReason))

	case gatesvc.Challenge:
		a.handleChallenge(ctx, client, sender, inbound, decision)
	}
}

func (a *App) handleChallenge(ctx context.Context, client *telegram.Client, sender model.Sender, inbound model.InboundMessage, decision gatesvc.Decision) {
	switch decision.Challenge {
	case gatesvc.NeedsMembership:
		a.sendInline(client, inbound.ChatID, ui.MembershipPrompt(a.cfg.ChannelInviteLink, a.cfg.GroupInviteLink), [][]telegram.InlineButton{{
			{Text: "I have joined ✅", Data: membershipRecheckData()},
		}})

	case gatesvc.NeedsIntroduction:
		if decision.IntroSubmitted && decision.Intro != nil {
			a.sendText(client, inbound.ChatID, ui.IntroductionPending)
			a.notifyAdminsOfIntroduction(*decision.Intro)
			return
		}
		a.sendText(client, inbound.ChatID, ui.IntroductionPrompt)

	case gatesvc.NeedsConsent:
		a.sendInline(client, inbound.ChatID, ui.ConsentPrompt(decision.ConsentType), [][]telegram.InlineButton{{
			{Text: "I agree ✅", Data: consentData(decision.ConsentType, true, "")},
			{Text: "No ❌", Data: consentData(decision.ConsentType, false, "")},
		}})
	}
}

func (a *App) deliver(ctx context.Context, client *telegram.Client, sender model.Sender, inbound model.InboundMessage) {
	firstDelivery := false
	if record, err := a.usersService.Get(ctx, sender.TGID); err != nil {
		a.logger.Error("read user before delivery", "tg_id", sender.TGID, "err", err)
	} else if record != nil {
		firstDelivery = !record.Welcomed
	}

	isMember := a.membershipService.IsMemberOfAll(ctx, sender.TGID)
	result := a.deliveries[client].Forward(ctx, sender, inbound, isMember, firstDelivery)
	if result.Failed {
		a.sendText(client, inbound.ChatID, ui.DeliveryFailedNotice)
		return
	}

	a.maybeSendOfflineNotice(client, sender.TGID, inbound.ChatID)
}

func (a *App) notifyAdminsOfIntroduction(intro model.PendingIntroduction) {
	text := ui.IntroductionReview(intro)
	rows := [][]telegram.InlineButton{{
		{Text: "Approve ✅", Data: approvalData(intro.TGID, true)},
		{Text: "Reject ❌", Data: approvalData(intro.TGID, false)},
	}}
	for _, adminID := range a.cfg.AdminIDs {
		a.sendInline(a.primary(), adminID, text, rows)
	}
}

func (a *App) handleLeaveRequest(ctx context.Context, client *telegram.Client, message *tgbotapi.Message) {
	sender := senderOf(message.From)

	approved, err := a.approvalService.IsApproved(ctx, sender.TGID)
	if err != nil {
		a.logger.Error("approval check on /leave", "tg_id", sender.TGID, "err", err)
	}
	if !approved {
		a.sendText(client, message.Chat.ID, ui.UnknownCommand)
		return
	}

	rows := [][]telegram.InlineButton{{
		{Text: "Confirm ✅", Data: leaveData(sender.TGID, true)},
		{Text: "Deny ❌", Data: leaveData(sender.TGID, false)},
	}}
	for _, adminID := range a.cfg.AdminIDs {
		a.sendInline(a.primary(), adminID, ui.LeaveReview(sender), rows)
	}
	a.sendText(client, message.Chat.ID, ui.LeaveRequestReceived)
}

func (a *App) handleMemberLeft(ctx context.Context, client *telegram.Client, message *tgbotapi.Message) {
	left := message.LeftChatMember
	if left == nil || left.IsBot {
		return
	}

	sender := senderOf(left)
	if err := a.approvalService.Revoke(ctx, sender.TGID); err != nil {
		a.logger.Error("revoke approval on leave", "tg_id", sender.TGID, "err", err)
		return
	}
	for _, adminID := range a.cfg.AdminIDs {
		a.sendText(a.primary(), adminID, ui.MemberLeft(sender))
	}
}

func (a *App) handleCallback(ctx context.Context, client *telegram.Client, callback *tgbotapi.CallbackQuery) {
	if callback.From == nil {
		return
	}
	fromID := callback.From.ID
	chatID := fromID
	if callback.Message != nil && callback.Message.Chat != nil {
		chatID = callback.Message.Chat.ID
	}

	command, err := DecodeCommand(callback.Data)
	if err != nil {
		a.logger.Warn("undecodable callback", "tg_id", fromID, "err", err)
		a.answerCallback(client, callback.ID, "Something went wrong, try again later.")
		return
	}

	switch cmd := command.(type) {
	case MembershipRecheck:
		if a.membershipService.IsMemberOfAll(ctx, fromID) {
			a.answerCallback(client, callback.ID, "")
			a.sendText(client, chatID, ui.MembershipConfirmed)
			return
		}
		a.answerCallback(client, callback.ID, "")
		a.sendText(client, chatID, ui.MembershipStillMissing)

	case ApprovalDecision:
		if !a.gateService.IsAdmin(fromID) {
			a.answerCallback(client, callback.ID, ui.AdminOnly)
			return
		}
		a.handleApprovalDecision(ctx, client, callback, cmd)

	case ConsentAnswer:
		if err := a.consentService.Record(ctx, fromID, cmd.Type, cmd.Granted); err != nil {
			a.logger.Error("record consent", "tg_id", fromID, "type", cmd.Type, "err", err)
		}
		if cmd.RequestID != noRequestID {
			a.consentService.Resolve(cmd.RequestID, cmd.Granted)
		}
		a.answerCallback(client, callback.ID, ui.ConsentThanks)

	case MigrationConfirm:
		if !a.gateService.IsAdmin(fromID) {
			a.answerCallback(client, callback.ID, ui.AdminOnly)
			return
		}
		a.answerCallback(client, callback.ID, "")
		if !cmd.Proceed {
			a.sendText(client, chatID, ui.MigrationCancelled)
			return
		}
		a.startMigration(ctx, client, chatID)

	case LeaveDecision:
		if !a.gateService.IsAdmin(fromID) {
			a.answerCallback(client, callback.ID, ui.AdminOnly)
			return
		}
		a.answerCallback(client, callback.ID, "")
		if !cmd.Confirm {
			a.sendText(a.primary(), cmd.TGID, ui.LeaveDenied)
			return
		}
		if err := a.approvalService.Revoke(ctx, cmd.TGID); err != nil {
			a.logger.Error("revoke approval", "tg_id", cmd.TGID, "err", err)
			return
		}
		a.sendText(a.primary(), cmd.TGID, ui.LeaveConfirmed)
	}
}

func (a *App) handleApprovalDecision(ctx context.Context, client *telegram.Client, callback *tgbotapi.CallbackQuery, cmd ApprovalDecision) {
	if cmd.Approve {
		if err := a.approvalService.Approve(ctx, cmd.TGID); err != nil {
			a.logger.Error("approve introduction", "tg_id", cmd.TGID, "err", err)
			a.answerCallback(client, callback.ID, "Something went wrong, try again later.")
			return
		}
		a.answerCallback(client, callback.ID, "Approved")
		a.sendText(a.primary(), cmd.TGID, ui.IntroductionApproved)
		return
	}

	if err := a.approvalService.Reject(ctx, cmd.TGID); err != nil {
		a.logger.Error("reject introduction", "tg_id", cmd.TGID, "err", err)
		a.answerCallback(client, callback.ID, "Something went wrong, try again later.")
		return
	}
	a.answerCallback(client, callback.ID, "Rejected")
	a.sendText(a.primary(), cmd.TGID, ui.IntroductionRejected)
}

// startMigration runs the batch job on the caller's context, so a
// process shutdown cancels an in-flight migration instead of leaving
// it parked in a consent wait.
func (a *App) startMigration(ctx context.Context, client *telegram.Client, chatID int64) {
	a.migrationMu.Lock()
	if a.migrationRunning {
		a.migrationMu.Unlock()
		a.sendText(client, chatID, "A migration is already running.")
		return
	}
	a.migrationRunning = true
	a.migrationMu.Unlock()

	a.sendText(client, chatID, ui.MigrationStarted)
	go func() {
		defer func() {
			a.migrationMu.Lock()
			a.migrationRunning = false
			a.migrationMu.Unlock()
		}()

		stats, err := a.migrationService.Run(ctx)
		if err != nil {
			a.logger.Error("migration run", "err", err)
			a.sendText(client, chatID, fmt.Sprintf("Migration stopped: %v", err))
			return
		}
		a.logger.Info("migration finished", "invited", stats.Invited, "declined", stats.Declined, "failed", stats.Failed)
	}()
}

// ListMembers enumerates reachable members of the source group. The
// platform only exposes administrators for arbitrary groups, so bulk
// migration covers those plus everyone in the user store.
func (a *App) ListMembers(ctx context.Context, chatID int64) ([]model.Sender, error) {
	seen := make(map[int64]bool)
	var members []model.Sender

	admins, err := a.primary().ChatAdministrators(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat administrators: %w", err)
	}
	for _, admin := range admins {
		if admin.User == nil || admin.User.IsBot {
			continue
		}
		if a.membershipService.IsMember(ctx, chatID, admin.User.ID) != membership.Member {
			continue
		}
		if a.alreadyMigrated(ctx, admin.User.ID) {
			continue
		}
		seen[admin.User.ID] = true
		members = append(members, senderOf(admin.User))
	}

	records, err := a.usersService.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list known users: %w", err)
	}
	for _, record := range records {
		if seen[record.TGID] || record.Blocked {
			continue
		}
		if a.membershipService.IsMember(ctx, chatID, record.TGID) != membership.Member {
			continue
		}
		if a.alreadyMigrated(ctx, record.TGID) {
			continue
		}
		members = append(members, model.Sender{
			TGID:      record.TGID,
			Username:  record.Username,
			FirstName: record.FirstName,
			LastName:  record.LastName,
		})
	}
	return members, nil
}

// alreadyMigrated reports whether the user is already in the target
// group, so repeated runs do not re-invite them.
func (a *App) alreadyMigrated(ctx context.Context, userID int64) bool {
	if a.cfg.MigrationTargetChatID == 0 {
		return false
	}
	return a.membershipService.IsMember(ctx, a.cfg.MigrationTargetChatID, userID) == membership.Member
}

func (a *App) SendConsentPrompt(ctx context.Context, userID int64, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	markup := telegram.BuildInlineKeyboard([][]telegram.InlineButton{{
		{Text: "Yes, I consent ✅", Data: consentData(enums.ConsentMigration, true, requestID)},
		{Text: "No, thanks ❌", Data: consentData(enums.ConsentMigration, false, requestID)},
	}})
	msg := tgbotapi.NewMessage(userID, ui.ConsentPrompt(enums.ConsentMigration))
	msg.ReplyMarkup = markup
	return a.primary().Send(msg)
}

func (a *App) Invite(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	link := a.cfg.GroupInviteLink
	if link == "" {
		return fmt.Errorf("group invite link is not configured")
	}
	return a.primary().SendText(userID, "You are welcome in our new group: "+link)
}

func (a *App) Progress(ctx context.Context, text string) {
	if a.cfg.OperatorChannelID == 0 {
		return
	}
	a.sendText(a.primary(), a.cfg.OperatorChannelID, text)
}

func (a *App) buildInbound(ctx context.Context, client *telegram.Client, message *tgbotapi.Message) model.InboundMessage {
	inbound := model.InboundMessage{
		MessageID: message.MessageID,
		ChatID:    message.Chat.ID,
		Text:      message.Text,
		Caption:   message.Caption,
		Kind:      enums.MessageText,
		SentAt:    message.Time(),
	}

	var thumbFileID string
	switch {
	case len(message.Photo) > 0:
		inbound.Kind = enums.MessagePhoto
		inbound.HasMedia = true
		thumbFileID = message.Photo[len(message.Photo)-1].FileID
	case message.Video != nil:
		inbound.Kind = enums.MessageVideo
		inbound.HasMedia = true
		if message.Video.Thumbnail != nil {
			thumbFileID = message.Video.Thumbnail.FileID
		}
	case message.Animation != nil:
		inbound.Kind = enums.MessageAnimation
		inbound.HasMedia = true
		if message.Animation.Thumbnail != nil {
			thumbFileID = message.Animation.Thumbnail.FileID
		}
	case message.Document != nil:
		inbound.Kind = enums.MessageDocument
		inbound.HasMedia = true
		inbound.FileName = message.Document.FileName
	case message.Text == "":
		inbound.Kind = enums.MessageOther
	}

	// Download the scoring payload only when an image scorer is wired.
	if thumbFileID != "" && a.cfg.ImageAPIURL != "" {
		data, err := client.DownloadFile(ctx, thumbFileID)
		if err != nil {
			a.logger.Warn("download media for scoring", "file_id", thumbFileID, "err", err)
		} else {
			inbound.MediaData = data
		}
	}

	return inbound
}

func (a *App) operatorsAvailable() bool {
	a.availabilityMu.Lock()
	defer a.availabilityMu.Unlock()
	return a.operatorsOnline
}

func (a *App) toggleAvailability() bool {
	a.availabilityMu.Lock()
	defer a.availabilityMu.Unlock()
	a.operatorsOnline = !a.operatorsOnline
	return a.operatorsOnline
}

// maybeSendOfflineNotice tells the sender the operators are away, at most
// once per cooldown window per user.
func (a *App) maybeSendOfflineNotice(client *telegram.Client, tgID, chatID int64) {
	a.availabilityMu.Lock()
	if a.operatorsOnline {
		a.availabilityMu.Unlock()
		return
	}
	cooldown := time.Duration(a.cfg.OfflineReplyCooldownSeconds) * time.Second
	last, ok := a.lastOfflineReply[tgID]
	if ok && time.Since(last) < cooldown {
		a.availabilityMu.Unlock()
		return
	}
	a.lastOfflineReply[tgID] = time.Now()
	a.availabilityMu.Unlock()

	a.sendText(client, chatID, ui.OfflineNotice)
}

func (a *App) sendText(client *telegram.Client, chatID int64, text string) {
	if err := client.SendText(chatID, text); err != nil {
		a.logger.Warn("send text", "chat_id", chatID, "err", err)
	}
}

func (a *App) sendInline(client *telegram.Client, chatID int64, text string, rows [][]telegram.InlineButton) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = telegram.BuildInlineKeyboard(rows)
	if err := client.Send(msg); err != nil {
		a.logger.Warn("send inline message", "chat_id", chatID, "err", err)
	}
}

func (a *App) answerCallback(client *telegram.Client, callbackID, text string) {
	if err := client.AnswerCallback(callbackID, text); err != nil {
		a.logger.Warn("answer callback", "err", err)
	}
}

func senderOf(user *tgbotapi.User) model.Sender {
	if user == nil {
		return model.Sender{}
	}
	return model.Sender{
		TGID:      user.ID,
		Username:  user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}
