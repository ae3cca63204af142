package moderation

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"

	"bot_gatekeeper/internal/infra/safety"
)

// Verdict is the combined outcome of all content checks for one message.
type Verdict struct {
	Flagged    bool
	Reason     enums.BlockReason
	Confidence float64
}

type TextScorer interface {
	ScoreText(ctx context.Context, text string) (float64, error)
}

type ImageScorer interface {
	ScoreImage(ctx context.Context, data []byte) ([]safety.ImageDetection, error)
}

var sexualTerms = map[string]bool{
	"sex":  true,
	"nude": true,
	"porn": true,
	"xxx":  true,
}

var inappropriatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(porn|xxx|sex|nude|adult|18\+|onlyfans)`),
	regexp.MustCompile(`(?i)(escort|prostitute|dating|hookup)`),
	regexp.MustCompile(`(?i)(cocaine|heroin|drug|weed|meth)`),
	regexp.MustCompile(`(?i)(gambling|casino|bet|lottery)`),
	regexp.MustCompile(`(?i)(fuck|shit|dick|ass|bitch|pussy)`),
}

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(buy|sell|cheap|discount|offer|limited)`),
	regexp.MustCompile(`(?i)(win|prize|lottery|lucky|selected)`),
	regexp.MustCompile(`(?i)(crypto|bitcoin|eth|investment|profit)`),
}

var wordSplitter = regexp.MustCompile(`[^\p{L}\p{N}+]+`)

// Classifier combines pattern matching with the external profanity and
// image-safety scorers. Either scorer may be nil, in which case its
// family is skipped.
type Classifier struct {
	textScorer         TextScorer
	imageScorer        ImageScorer
	profanityThreshold float64
	imageThreshold     float64
	bannedWords        map[string]bool
	bannedClasses      map[string]bool
	logger             *slog.Logger
}

type Config struct {
	ProfanityThreshold float64
	ImageThreshold     float64
	BannedWords        []string
	BannedImageClasses []string
}

func NewClassifier(textScorer TextScorer, imageScorer ImageScorer, cfg Config, logger *slog.Logger) *Classifier {
	if cfg.ProfanityThreshold <= 0 {
		cfg.ProfanityThreshold = 0.5
	}
	if cfg.ImageThreshold <= 0 {
		cfg.ImageThreshold = 0.7
	}
	banned := make(map[string]bool, len(cfg.BannedWords))
	for _, word := range cfg.BannedWords {
		banned[strings.ToLower(strings.TrimSpace(word))] = true
	}
	classes := make(map[string]bool, len(cfg.BannedImageClasses))
	for _, class := range cfg.BannedImageClasses {
		classes[strings.ToLower(strings.TrimSpace(class))] = true
	}
	return &Classifier{
		textScorer:         textScorer,
		imageScorer:        imageScorer,
		profanityThreshold: cfg.ProfanityThreshold,
		imageThreshold:     cfg.ImageThreshold,
		bannedWords:        banned,
		bannedClasses:      classes,
		logger:             logger,
	}
}

// Classify evaluates the detector families in fixed order: media first,
// then text patterns, then the profanity score. The first family that
// fires decides the reason. Scorer errors fail open for text and fail
// closed for media.
func (c *Classifier) Classify(ctx context.Context, msg model.InboundMessage) Verdict {
	if msg.HasMedia {
		if verdict := c.classifyMedia(ctx, msg); verdict.Flagged {
			return verdict
		}
	}

	for _, text := range []string{msg.Text, msg.Caption, msg.FileName} {
		if verdict := c.classifyText(ctx, text); verdict.Flagged {
			return verdict
		}
	}

	return Verdict{}
}

func (c *Classifier) classifyMedia(ctx context.Context, msg model.InboundMessage) Verdict {
	if c.imageScorer == nil || len(msg.MediaData) == 0 {
		return Verdict{}
	}

	detections, err := c.imageScorer.ScoreImage(ctx, msg.MediaData)
	if err != nil {
		// A scorer outage must not let unmoderated media through.
		if c.logger != nil {
			c.logger.Warn("image scoring failed, blocking media", "err", err)
		}
		return Verdict{Flagged: true, Reason: enums.BlockReasonInappropriateMedia}
	}

	for _, detection := range detections {
		if detection.Score < c.imageThreshold {
			continue
		}
		if len(c.bannedClasses) == 0 || c.bannedClasses[strings.ToLower(detection.Class)] {
			return Verdict{Flagged: true, Reason: enums.BlockReasonInappropriateMedia, Confidence: detection.Score}
		}
	}
	return Verdict{}
}

func (c *Classifier) classifyText(ctx context.Context, text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{}
	}

	tokens := wordSplitter.Split(strings.ToLower(text), -1)
	for _, token := range tokens {
		if sexualTerms[token] {
			return Verdict{Flagged: true, Reason: enums.BlockReasonSexualContent}
		}
	}
	for _, token := range tokens {
		if c.bannedWords[token] {
			return Verdict{Flagged: true, Reason: enums.BlockReasonInappropriateContent}
		}
	}

	for _, pattern := range inappropriatePatterns {
		if pattern.MatchString(text) {
			return Verdict{Flagged: true, Reason: enums.BlockReasonInappropriateContent}
		}
	}

	spamHits := 0
	for _, pattern := range spamPatterns {
		if pattern.MatchString(text) {
			spamHits++
		}
	}
	if spamHits >= 2 {
		return Verdict{Flagged: true, Reason: enums.BlockReasonSpam}
	}

	if c.textScorer != nil {
		score, err := c.textScorer.ScoreText(ctx, text)
		if err != nil {
			// Text scoring fails open; the pattern families already ran.
			if c.logger != nil {
				c.logger.Warn("profanity scoring failed, passing text", "err", err)
			}
			return Verdict{}
		}
		if score >= c.profanityThreshold {
			return Verdict{Flagged: true, Reason: enums.BlockReasonInappropriateContent, Confidence: score}
		}
	}

	return Verdict{}
}
