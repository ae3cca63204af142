package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"bot_gatekeeper/internal/config"
	"bot_gatekeeper/internal/domain/enums"
	s3infra "bot_gatekeeper/internal/infra/s3"
	"bot_gatekeeper/internal/infra/safety"
	"bot_gatekeeper/internal/infra/telegram"
	"bot_gatekeeper/internal/repo/jsonfile"
	"bot_gatekeeper/internal/repo/postgres"
	redisrepo "bot_gatekeeper/internal/repo/redis"
	approvalsvc "bot_gatekeeper/internal/services/approval"
	"bot_gatekeeper/internal/services/auditlog"
	consentsvc "bot_gatekeeper/internal/services/consent"
	deliverysvc "bot_gatekeeper/internal/services/delivery"
	gatesvc "bot_gatekeeper/internal/services/gate"
	"bot_gatekeeper/internal/services/membership"
	migrationsvc "bot_gatekeeper/internal/services/migration"
	"bot_gatekeeper/internal/services/moderation"
	userssvc "bot_gatekeeper/internal/services/users"
)

type App struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	clients    []*telegram.Client
	deliveries map[*telegram.Client]*deliverysvc.Service

	usersService      *userssvc.Service
	consentService    *consentsvc.Service
	approvalService   *approvalsvc.Service
	membershipService *membership.Service
	auditService      *auditlog.Service
	gateService       *gatesvc.Service
	migrationService  migrationRunner

	availabilityMu   sync.Mutex
	operatorsOnline  bool
	lastOfflineReply map[int64]time.Time

	migrationMu      sync.Mutex
	migrationRunning bool
}

type migrationRunner interface {
	Run(ctx context.Context) (migrationsvc.Stats, error)
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		cfg:              cfg,
		logger:           logger,
		deliveries:       make(map[*telegram.Client]*deliverysvc.Service),
		operatorsOnline:  true,
		lastOfflineReply: make(map[int64]time.Time),
	}

	usersRepo, consentsRepo, approvalsRepo, auditRepo, err := app.openStores()
	if err != nil {
		return nil, err
	}

	externalTimeout := time.Duration(cfg.ExternalCallTimeoutSeconds) * time.Second

	var textScorer moderation.TextScorer
	if strings.TrimSpace(cfg.ProfanityAPIURL) != "" {
		client, err := safety.NewProfanityClient(cfg.ProfanityAPIURL, externalTimeout)
		if err != nil {
			return nil, fmt.Errorf("create profanity client: %w", err)
		}
		textScorer = client
	} else {
		logger.Warn("profanity scoring disabled: missing PROFANITY_API_URL")
	}

	var imageScorer moderation.ImageScorer
	if strings.TrimSpace(cfg.ImageAPIURL) != "" {
		client, err := safety.NewImageClient(cfg.ImageAPIURL, externalTimeout)
		if err != nil {
			return nil, fmt.Errorf("create image safety client: %w", err)
		}
		imageScorer = client
	} else {
		logger.Warn("image safety scoring disabled: missing IMAGE_API_URL")
	}

	var mediaStore *s3infra.MediaStore
	if strings.TrimSpace(cfg.S3Endpoint) != "" && strings.TrimSpace(cfg.S3Bucket) != "" {
		mediaStore, err = s3infra.NewMediaStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			logger.Warn("media archive unavailable, violation media will not be stored", "err", err)
			mediaStore = nil
		}
	} else {
		logger.Warn("media archive disabled: missing S3_ENDPOINT or S3_BUCKET")
	}

	app.usersService = userssvc.NewService(usersRepo)
	app.consentService = consentsvc.NewService(consentsRepo, cfg.ConsentVersion, time.Duration(cfg.ConsentReplyTimeoutSeconds)*time.Second)
	app.approvalService = approvalsvc.NewService(approvalsRepo)
	app.auditService = auditlog.NewService(auditRepo, logger)

	classifier := moderation.NewClassifier(textScorer, imageScorer, moderation.Config{
		ProfanityThreshold: cfg.ProfanityThreshold,
		ImageThreshold:     cfg.ImageThreshold,
		BannedWords:        cfg.BannedWords,
		BannedImageClasses: cfg.BannedImageClasses,
	}, logger)

	if len(cfg.BotTokens) == 0 {
		// Dry-run session so the pipeline can be exercised without a token.
		cfg.BotTokens = []string{""}
	}
	for _, token := range cfg.BotTokens {
		client, err := telegram.NewClient(token, cfg.PollTimeoutSeconds, externalTimeout, logger, app.routeUpdate)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("create telegram client: %w", err)
		}
		app.clients = append(app.clients, client)
		app.deliveries[client] = deliverysvc.NewService(client, app.usersService, app.auditService, mediaStore, cfg.OperatorChannelID, logger)
	}

	primary := app.clients[0]
	app.membershipService = membership.NewService(primary, cfg.RequiredChannelIDs, logger)

	gateCfg := gatesvc.Config{AdminIDs: cfg.AdminIDs}
	if cfg.RequiredConsent != "" {
		consentType, ok := enums.ParseConsentType(cfg.RequiredConsent)
		if !ok {
			return nil, fmt.Errorf("unknown REQUIRED_CONSENT %q", cfg.RequiredConsent)
		}
		gateCfg.RequiredConsent = consentType
	}
	app.gateService = gatesvc.NewService(
		app.usersService,
		app.membershipService,
		app.approvalService,
		app.consentService,
		classifier,
		app.auditService,
		approvalsvc.ExtractIntroduction,
		gateCfg,
		logger,
	)

	app.migrationService = migrationsvc.NewService(app, app.consentService, app, migrationsvc.Config{
		SourceChatID: cfg.MigrationSourceChatID,
		BatchSize:    cfg.MigrationBatchSize,
		BatchDelay:   time.Duration(cfg.MigrationBatchDelaySeconds) * time.Second,
	}, logger)

	return app, nil
}

func (a *App) openStores() (userssvc.Repo, consentsvc.Repo, approvalsvc.Repo, auditlog.Repo, error) {
	switch a.cfg.StoreMode {
	case config.StoreModePostgres:
		db, err := postgres.Open(context.Background(), a.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if db == nil {
			return nil, nil, nil, nil, fmt.Errorf("postgres store mode requires DATABASE_URL")
		}
		a.db = db
		return postgres.NewUsersRepo(db), postgres.NewConsentsRepo(db), postgres.NewApprovalsRepo(db), postgres.NewAuditRepo(db), nil

	case config.StoreModeRedis:
		client := goredis.NewClient(&goredis.Options{Addr: a.cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		a.redis = client
		return redisrepo.NewUsersRepo(client), redisrepo.NewConsentsRepo(client), redisrepo.NewApprovalsRepo(client), redisrepo.NewAuditRepo(client), nil

	default:
		usersRepo, err := jsonfile.NewUsersRepo(a.cfg.DataDir, a.logger)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open users store: %w", err)
		}
		consentsRepo, err := jsonfile.NewConsentsRepo(a.cfg.DataDir, a.logger)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open consents store: %w", err)
		}
		approvalsRepo, err := jsonfile.NewApprovalsRepo(a.cfg.DataDir, a.logger)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open approvals store: %w", err)
		}
		auditRepo, err := jsonfile.NewAuditRepo(a.cfg.DataDir, a.logger)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open audit store: %w", err)
		}
		return usersRepo, consentsRepo, approvalsRepo, auditRepo, nil
	}
}

// Run starts every bot session and blocks until the context ends.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	var wg sync.WaitGroup
	errCh := make(chan error, len(a.clients))
	for _, client := range a.clients {
		wg.Add(1)
		go func(c *telegram.Client) {
			defer wg.Done()
			if err := c.Start(ctx); err != nil {
				errCh <- err
			}
		}(client)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (a *App) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("close postgres", "err", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("close redis", "err", err)
		}
	}
}

func (a *App) primary() *telegram.Client {
	return a.clients[0]
}
