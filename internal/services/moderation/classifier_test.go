package moderation

import (
	"context"
	"errors"
	"testing"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
	"bot_gatekeeper/internal/infra/safety"
)

type stubTextScorer struct {
	score float64
	err   error
}

func (s *stubTextScorer) ScoreText(context.Context, string) (float64, error) {
	return s.score, s.err
}

type stubImageScorer struct {
	detections []safety.ImageDetection
	err        error
}

func (s *stubImageScorer) ScoreImage(context.Context, []byte) ([]safety.ImageDetection, error) {
	return s.detections, s.err
}

func TestClassifySexualTermWinsOverPatterns(t *testing.T) {
	c := NewClassifier(nil, nil, Config{}, nil)

	verdict := c.Classify(context.Background(), model.InboundMessage{Text: "check out this nude pic"})
	if !verdict.Flagged || verdict.Reason != enums.BlockReasonSexualContent {
		t.Fatalf("expected sexual_content, got %+v", verdict)
	}
}

func TestClassifyInappropriatePattern(t *testing.T) {
	c := NewClassifier(nil, nil, Config{}, nil)

	verdict := c.Classify(context.Background(), model.InboundMessage{Text: "best casino in town"})
	if !verdict.Flagged || verdict.Reason != enums.BlockReasonInappropriateContent {
		t.Fatalf("expected inappropriate_content, got %+v", verdict)
	}
}

func TestClassifySpamRequiresTwoFamilies(t *testing.T) {
	c := NewClassifier(nil, nil, Config{}, nil)
	ctx := context.Background()

	// One spam family alone must not flag.
	verdict := c.Classify(ctx, model.InboundMessage{Text: "limited offer today"})
	if verdict.Flagged {
		t.Fatalf("single spam family must pass, got %+v", verdict)
	}

	// Two distinct families flag as spam.
	verdict = c.Classify(ctx, model.InboundMessage{Text: "limited offer, guaranteed profit"})
	if !verdict.Flagged || verdict.Reason != enums.BlockReasonSpam {
		t.Fatalf("expected spam, got %+v", verdict)
	}
}

func TestClassifyProfanityScoreThreshold(t *testing.T) {
	ctx := context.Background()

	c := NewClassifier(&stubTextScorer{score: 0.9}, nil, Config{ProfanityThreshold: 0.5}, nil)
	verdict := c.Classify(ctx, model.InboundMessage{Text: "totally harmless words"})
	if !verdict.Flagged || verdict.Reason != enums.BlockReasonInappropriateContent {
		t.Fatalf("expected score-based flag, got %+v", verdict)
	}

	c = NewClassifier(&stubTextScorer{score: 0.2}, nil, Config{ProfanityThreshold: 0.5}, nil)
	if verdict := c.Classify(ctx, model.InboundMessage{Text: "totally harmless words"}); verdict.Flagged {
		t.Fatalf("expected pass below threshold, got %+v", verdict)
	}
}

func TestClassifyTextScorerErrorFailsOpen(t *testing.T) {
	c := NewClassifier(&stubTextScorer{err: errors.New("scorer down")}, nil, Config{}, nil)

	verdict := c.Classify(context.Background(), model.InboundMessage{Text: "totally harmless words"})
	if verdict.Flagged {
		t.Fatalf("expected text scorer outage to fail open, got %+v", verdict)
	}
}

func TestClassifyImageScorerErrorFailsClosed(t *testing.T) {
	c := NewClassifier(nil, &stubImageScorer{err: errors.New("scorer down")}, Config{}, nil)

	verdict := c.Classify(context.Background(), model.InboundMessage{
		Kind:      enums.MessagePhoto,
		HasMedia:  true,
		MediaData: []byte{1, 2, 3},
	})
	if !verdict.Flagged || verdict.Reason != enums.BlockReasonInappropriateMedia {
		t.Fatalf("expected image scorer outage to fail closed, got %+v", verdict)
	}
}

func TestClassifyMediaThreshold(t *testing.T) {
	ctx := context.Background()
	msg := model.InboundMessage{Kind: enums.MessagePhoto, HasMedia: true, MediaData: []byte{1}}

	c := NewClassifier(nil, &stubImageScorer{detections: []safety.ImageDetection{{Class: "unsafe", Score: 0.9}}}, Config{ImageThreshold: 0.7}, nil)
	verdict := c.Classify(ctx, msg)
	if !verdict.Flagged || verdict.Reason != enums.BlockReasonInappropriateMedia {
		t.Fatalf("expected media flag above threshold, got %+v", verdict)
	}

	c = NewClassifier(nil, &stubImageScorer{detections: []safety.ImageDetection{{Class: "unsafe", Score: 0.5}}}, Config{ImageThreshold: 0.7}, nil)
	if verdict := c.Classify(ctx, msg); verdict.Flagged {
		t.Fatalf("expected pass below media threshold, got %+v", verdict)
	}
}

func TestClassifyMediaBeforeCaption(t *testing.T) {
	// Media and caption both fire; the media family decides the reason.
	c := NewClassifier(nil, &stubImageScorer{detections: []safety.ImageDetection{{Class: "unsafe", Score: 0.9}}}, Config{}, nil)

	verdict := c.Classify(context.Background(), model.InboundMessage{
		Kind:      enums.MessagePhoto,
		HasMedia:  true,
		MediaData: []byte{1},
		Caption:   "visit my casino",
	})
	if verdict.Reason != enums.BlockReasonInappropriateMedia {
		t.Fatalf("expected media reason to win, got %+v", verdict)
	}
}

func TestClassifyFilenameChecked(t *testing.T) {
	c := NewClassifier(nil, nil, Config{}, nil)

	verdict := c.Classify(context.Background(), model.InboundMessage{
		Kind:     enums.MessageDocument,
		HasMedia: true,
		FileName: "hot_xxx_collection.mp4",
	})
	if !verdict.Flagged {
		t.Fatalf("expected filename to be classified, got %+v", verdict)
	}
}

func TestClassifyCleanMessage(t *testing.T) {
	c := NewClassifier(&stubTextScorer{score: 0.1}, nil, Config{}, nil)

	verdict := c.Classify(context.Background(), model.InboundMessage{Text: "hello, how are you today?"})
	if verdict.Flagged {
		t.Fatalf("expected clean pass, got %+v", verdict)
	}
}

func TestClassifyBannedWordFromConfig(t *testing.T) {
	c := NewClassifier(nil, nil, Config{BannedWords: []string{"Voldemort"}}, nil)

	verdict := c.Classify(context.Background(), model.InboundMessage{Text: "he said voldemort twice"})
	if !verdict.Flagged || verdict.Reason != enums.BlockReasonInappropriateContent {
		t.Fatalf("expected configured banned word to flag, got %+v", verdict)
	}
}
