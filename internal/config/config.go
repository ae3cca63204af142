package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	StoreModeFile     = "file"
	StoreModePostgres = "postgres"
	StoreModeRedis    = "redis"
)

type Config struct {
	BotTokens          []string
	AdminIDs           []int64
	OperatorChannelID  int64
	RequiredChannelIDs []int64
	ChannelInviteLink  string
	GroupInviteLink    string

	LogLevel           string
	LogFormat          string
	PollTimeoutSeconds int

	StoreMode   string
	DataDir     string
	DatabaseURL string
	RedisAddr   string

	ConsentVersion  string
	RequiredConsent string

	ProfanityAPIURL            string
	ProfanityThreshold         float64
	ImageAPIURL                string
	ImageThreshold             float64
	BannedWords                []string
	BannedImageClasses         []string
	ExternalCallTimeoutSeconds int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Bucket    string

	MigrationSourceChatID       int64
	MigrationTargetChatID       int64
	MigrationBatchSize          int
	MigrationBatchDelaySeconds  int
	ConsentReplyTimeoutSeconds  int
	OfflineReplyCooldownSeconds int
}

func Load() (Config, error) {
	operatorChannel, err := getInt64([]string{"OPERATOR_CHANNEL_ID"}, 0)
	if err != nil {
		return Config{}, err
	}

	pollTimeout, err := getInt([]string{"POLL_TIMEOUT_SECONDS"}, 30)
	if err != nil {
		return Config{}, err
	}

	adminIDs, err := getInt64List("ADMIN_IDS")
	if err != nil {
		return Config{}, err
	}

	requiredChannels, err := getInt64List("REQUIRED_CHANNEL_IDS")
	if err != nil {
		return Config{}, err
	}

	profanityThreshold, err := getFloat([]string{"PROFANITY_THRESHOLD"}, 0.5)
	if err != nil {
		return Config{}, err
	}

	imageThreshold, err := getFloat([]string{"IMAGE_THRESHOLD"}, 0.7)
	if err != nil {
		return Config{}, err
	}

	externalTimeout, err := getInt([]string{"EXTERNAL_CALL_TIMEOUT_SECONDS"}, 15)
	if err != nil {
		return Config{}, err
	}

	s3UseSSL, err := getBool([]string{"S3_USE_SSL"}, false)
	if err != nil {
		return Config{}, err
	}

	migrationSource, err := getInt64([]string{"MIGRATION_SOURCE_CHAT_ID"}, 0)
	if err != nil {
		return Config{}, err
	}

	migrationTarget, err := getInt64([]string{"MIGRATION_TARGET_CHAT_ID"}, 0)
	if err != nil {
		return Config{}, err
	}

	migrationBatch, err := getInt([]string{"MIGRATION_BATCH_SIZE"}, 10)
	if err != nil {
		return Config{}, err
	}

	migrationDelay, err := getInt([]string{"MIGRATION_BATCH_DELAY_SECONDS"}, 2)
	if err != nil {
		return Config{}, err
	}

	consentTimeout, err := getInt([]string{"CONSENT_REPLY_TIMEOUT_SECONDS"}, 300)
	if err != nil {
		return Config{}, err
	}

	offlineCooldown, err := getInt([]string{"OFFLINE_REPLY_COOLDOWN_SECONDS"}, 12*60*60)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BotTokens:          getStringList("BOT_TOKENS"),
		AdminIDs:           adminIDs,
		OperatorChannelID:  operatorChannel,
		RequiredChannelIDs: requiredChannels,
		ChannelInviteLink:  getString("CHANNEL_INVITE_LINK", ""),
		GroupInviteLink:    getString("GROUP_INVITE_LINK", ""),

		LogLevel:           getString("LOG_LEVEL", "info"),
		LogFormat:          getString("LOG_FORMAT", "text"),
		PollTimeoutSeconds: pollTimeout,

		StoreMode:   normalizeStoreMode(getString("STORE_MODE", StoreModeFile)),
		DataDir:     getString("DATA_DIR", "data"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:   getString("REDIS_ADDR", "localhost:6379"),

		ConsentVersion:  getString("CONSENT_VERSION", "1.0"),
		RequiredConsent: getString("REQUIRED_CONSENT", ""),

		ProfanityAPIURL:            getString("PROFANITY_API_URL", ""),
		ProfanityThreshold:         profanityThreshold,
		ImageAPIURL:                getString("IMAGE_API_URL", ""),
		ImageThreshold:             imageThreshold,
		BannedWords:                getStringList("BANNED_WORDS"),
		BannedImageClasses:         getStringList("BANNED_IMAGE_CLASSES"),
		ExternalCallTimeoutSeconds: externalTimeout,

		S3Endpoint:  getString("S3_ENDPOINT", ""),
		S3AccessKey: getString("S3_ACCESS_KEY", ""),
		S3SecretKey: getString("S3_SECRET_KEY", ""),
		S3UseSSL:    s3UseSSL,
		S3Bucket:    getString("S3_BUCKET", ""),

		MigrationSourceChatID:       migrationSource,
		MigrationTargetChatID:       migrationTarget,
		MigrationBatchSize:          migrationBatch,
		MigrationBatchDelaySeconds:  migrationDelay,
		ConsentReplyTimeoutSeconds:  consentTimeout,
		OfflineReplyCooldownSeconds: offlineCooldown,
	}

	if single := strings.TrimSpace(os.Getenv("BOT_TOKEN")); single != "" && len(cfg.BotTokens) == 0 {
		cfg.BotTokens = []string{single}
	}
	if cfg.PollTimeoutSeconds <= 0 {
		cfg.PollTimeoutSeconds = 30
	}
	if cfg.MigrationBatchSize <= 0 {
		cfg.MigrationBatchSize = 10
	}

	return cfg, nil
}

func normalizeStoreMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case StoreModePostgres, "pg", "db":
		return StoreModePostgres
	case StoreModeRedis:
		return StoreModeRedis
	default:
		return StoreModeFile
	}
}

func getString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getStringList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}

func getInt64List(key string) ([]int64, error) {
	raw := getStringList(key)
	if len(raw) == 0 {
		return nil, nil
	}
	values := make([]int64, 0, len(raw))
	for _, part := range raw {
		value, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		values = append(values, value)
	}
	return values, nil
}

func getInt64(keys []string, fallback int64) (int64, error) {
	raw, key := getFirstDefined(keys)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getInt(keys []string, fallback int) (int, error) {
	raw, key := getFirstDefined(keys)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getFloat(keys []string, fallback float64) (float64, error) {
	raw, key := getFirstDefined(keys)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getBool(keys []string, fallback bool) (bool, error) {
	raw, key := getFirstDefined(keys)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getFirstDefined(keys []string) (string, string) {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value, key
		}
	}
	if len(keys) == 0 {
		return "", ""
	}
	return "", keys[0]
}
