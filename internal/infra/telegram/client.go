package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type UpdateHandler func(context.Context, *Client, tgbotapi.Update)

const maxDownloadBytes = 20 * 1024 * 1024

// Client wraps one bot identity. Several clients may run side by side when
// the process is configured with multiple bot tokens; they share the same
// handler and backing stores.
type Client struct {
	api         *tgbotapi.BotAPI
	httpClient  *http.Client
	logger      *slog.Logger
	handler     UpdateHandler
	pollTimeout int
	dryRun      bool
}

func NewClient(token string, pollTimeout int, callTimeout time.Duration, logger *slog.Logger, handler UpdateHandler) (*Client, error) {
	if handler == nil {
		return nil, errors.New("telegram update handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}

	httpClient := &http.Client{Timeout: callTimeout}

	if strings.TrimSpace(token) == "" {
		return &Client{
			httpClient:  httpClient,
			logger:      logger,
			handler:     handler,
			pollTimeout: pollTimeout,
			dryRun:      true,
		}, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, err
	}

	return &Client{
		api:         api,
		httpClient:  httpClient,
		logger:      logger,
		handler:     handler,
		pollTimeout: pollTimeout,
	}, nil
}

func (c *Client) BotUsername() string {
	if c.dryRun {
		return "dry-run"
	}
	return c.api.Self.UserName
}

func (c *Client) Start(ctx context.Context) error {
	if c.dryRun {
		c.logger.Warn("bot token is empty, running in dry mode")
		<-ctx.Done()
		return nil
	}

	timeout := c.pollTimeout
	if timeout <= 0 {
		timeout = 30
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = timeout
	updates := c.api.GetUpdatesChan(updateConfig)

	c.consume(ctx, updates)
	if ctx.Err() != nil {
		c.api.StopReceivingUpdates()
	}
	return nil
}

// consume dispatches each update on its own goroutine, so one sender
// stuck in a slow external call never stalls the other conversations
// on this session. Per-user ordering is enforced further down.
func (c *Client) consume(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go c.handler(ctx, c, update)
		}
	}
}

func (c *Client) Send(msg tgbotapi.Chattable) error {
	_, err := c.SendReturning(msg)
	return err
}

func (c *Client) SendReturning(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if c.dryRun {
		return tgbotapi.Message{}, nil
	}
	return c.api.Send(msg)
}

func (c *Client) SendText(chatID int64, text string) error {
	return c.Send(tgbotapi.NewMessage(chatID, text))
}

// ReplyText sends text threaded as a reply to an existing message.
func (c *Client) ReplyText(chatID int64, replyToMessageID int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToMessageID
	return c.Send(msg)
}

// Forward re-sends a message to another chat and returns the new message ID
// for reply threading. Silent forwards carry no notification.
func (c *Client) Forward(ctx context.Context, toChatID, fromChatID int64, messageID int, silent bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if c.dryRun {
		return 0, nil
	}

	forward := tgbotapi.NewForward(toChatID, fromChatID, messageID)
	forward.DisableNotification = silent
	sent, err := c.api.Send(forward)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) ChatMemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.dryRun {
		return "", errors.New("dry mode: no chat member data")
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", err
	}
	return member.Status, nil
}

func (c *Client) ChatAdministrators(ctx context.Context, chatID int64) ([]tgbotapi.ChatMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.dryRun {
		return nil, nil
	}
	return c.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
}

// DownloadFile fetches a file payload by its Telegram file ID. The size is
// capped so an oversized upload cannot exhaust memory.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.dryRun {
		return nil, errors.New("dry mode: no file data")
	}

	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.api.Token), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: status=%d", fileID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

func (c *Client) AnswerCallback(callbackID, text string) error {
	if c.dryRun {
		return nil
	}
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}
