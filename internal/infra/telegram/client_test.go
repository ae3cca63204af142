package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestConsumeDispatchesUpdatesConcurrently(t *testing.T) {
	release := make(chan struct{})
	second := make(chan struct{})
	handler := func(_ context.Context, _ *Client, update tgbotapi.Update) {
		switch update.UpdateID {
		case 1:
			<-release
		case 2:
			close(second)
		}
	}

	client, err := NewClient("", 1, time.Second, nil, handler)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	updates := make(chan tgbotapi.Update, 2)
	updates <- tgbotapi.Update{UpdateID: 1}
	updates <- tgbotapi.Update{UpdateID: 2}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		client.consume(ctx, updates)
		close(done)
	}()

	// The second update must be handled while the first is still busy.
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second update waited for the first handler to finish")
	}

	close(release)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not stop on context cancel")
	}
}

func TestConsumeStopsOnClosedChannel(t *testing.T) {
	client, err := NewClient("", 1, time.Second, nil, func(context.Context, *Client, tgbotapi.Update) {})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	updates := make(chan tgbotapi.Update)
	close(updates)

	done := make(chan struct{})
	go func() {
		client.consume(context.Background(), updates)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not stop when the update channel closed")
	}
}
