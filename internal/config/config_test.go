package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKENS", "")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("STORE_MODE", "")
	t.Setenv("POLL_TIMEOUT_SECONDS", "")
	t.Setenv("PROFANITY_THRESHOLD", "")
	t.Setenv("IMAGE_THRESHOLD", "")
	t.Setenv("MIGRATION_BATCH_SIZE", "")
	t.Setenv("MIGRATION_BATCH_DELAY_SECONDS", "")
	t.Setenv("CONSENT_VERSION", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.StoreMode != StoreModeFile {
		t.Fatalf("expected store mode file, got %q", cfg.StoreMode)
	}
	if cfg.PollTimeoutSeconds != 30 {
		t.Fatalf("expected default poll timeout 30, got %d", cfg.PollTimeoutSeconds)
	}
	if cfg.ImageThreshold != 0.7 {
		t.Fatalf("expected default image threshold 0.7, got %v", cfg.ImageThreshold)
	}
	if cfg.ConsentVersion != "1.0" {
		t.Fatalf("expected default consent version 1.0, got %q", cfg.ConsentVersion)
	}
	if cfg.MigrationBatchSize != 10 {
		t.Fatalf("expected default migration batch 10, got %d", cfg.MigrationBatchSize)
	}
	if cfg.MigrationBatchDelaySeconds != 2 {
		t.Fatalf("expected default batch delay 2, got %d", cfg.MigrationBatchDelaySeconds)
	}
}

func TestLoadStoreModeNormalization(t *testing.T) {
	t.Setenv("STORE_MODE", "PG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StoreMode != StoreModePostgres {
		t.Fatalf("expected normalized mode postgres, got %q", cfg.StoreMode)
	}

	t.Setenv("STORE_MODE", "unknown")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StoreMode != StoreModeFile {
		t.Fatalf("expected unknown mode to fall back to file, got %q", cfg.StoreMode)
	}
}

func TestLoadLists(t *testing.T) {
	t.Setenv("BOT_TOKENS", "tok-a, tok-b ,")
	t.Setenv("ADMIN_IDS", "100, 200")
	t.Setenv("REQUIRED_CHANNEL_IDS", "-1001, -1002")
	t.Setenv("BANNED_WORDS", "alpha,beta")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if len(cfg.BotTokens) != 2 || cfg.BotTokens[1] != "tok-b" {
		t.Fatalf("unexpected bot tokens: %v", cfg.BotTokens)
	}
	if len(cfg.AdminIDs) != 2 || cfg.AdminIDs[0] != 100 {
		t.Fatalf("unexpected admin ids: %v", cfg.AdminIDs)
	}
	if len(cfg.RequiredChannelIDs) != 2 || cfg.RequiredChannelIDs[1] != -1002 {
		t.Fatalf("unexpected channel ids: %v", cfg.RequiredChannelIDs)
	}
	if len(cfg.BannedWords) != 2 {
		t.Fatalf("unexpected banned words: %v", cfg.BannedWords)
	}
}

func TestLoadSingleTokenFallback(t *testing.T) {
	t.Setenv("BOT_TOKENS", "")
	t.Setenv("BOT_TOKEN", "solo-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.BotTokens) != 1 || cfg.BotTokens[0] != "solo-token" {
		t.Fatalf("expected single token fallback, got %v", cfg.BotTokens)
	}
}

func TestLoadInvalidAdminIDs(t *testing.T) {
	t.Setenv("ADMIN_IDS", "100,not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed ADMIN_IDS")
	}
}
