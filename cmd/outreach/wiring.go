package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"outreach_scheduler/internal/app"
	"outreach_scheduler/internal/infra/cache"
	"outreach_scheduler/internal/infra/config"
	idb "outreach_scheduler/internal/infra/database"
	"outreach_scheduler/internal/infra/events"
	"outreach_scheduler/internal/infra/health"
	"outreach_scheduler/internal/infra/logger"
	"outreach_scheduler/internal/infra/render"
	"outreach_scheduler/internal/infra/scheduler"
	"outreach_scheduler/internal/infra/telegram"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

// application is the fully wired process. Clients are closed in reverse order of creation.
type application struct {
	db       *sql.DB
	queue    *events.InMemoryQueue // nil unless EVENT_BACKEND=memory
	bot      *telebot.Bot          // nil unless a bot token is configured
	messages *app.MessageService
	projects *app.ProjectService
	replies  *app.ReplyHandler
	cron     *scheduler.OutreachCron
	spinner  *render.Spinner
	health   *health.Checker

	closers []func() error
}

func (a *application) onClose(f func() error) {
	a.closers = append(a.closers, f)
}

func (a *application) Close() {
	log := logger.Component("main")
	if a.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.queue.Drain(ctx); err != nil {
			log.WithError(err).Warn("Event queue not drained before shutdown")
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("Error closing client")
		}
	}
}

func buildApplication(ctx context.Context, cfg *config.AppConfig) (_ *application, err error) {
	a := &application{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.db, err = idb.NewPostgresConnection(ctx, cfg.DatabaseURL, idb.PoolOptions{MaxOpenConns: cfg.DatabaseMaxOpenConns})
	if err != nil {
		return nil, err
	}
	a.onClose(a.db.Close)
	deps := []health.Dependency{{Name: "postgres", Pinger: health.PingerFunc(a.db.PingContext)}}

	var rdb *redis.Client
	redisClient := func() (*redis.Client, error) {
		if rdb != nil {
			return rdb, nil
		}
		c, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		rdb = c
		a.onClose(rdb.Close)
		deps = append(deps, health.Dependency{Name: "redis", Pinger: health.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})})
		return rdb, nil
	}

	var store cache.Cache
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		c, err := redisClient()
		if err != nil {
			return nil, err
		}
		store = cache.NewRedisCache(c)
	default:
		local := cache.NewLocalCache()
		store = local
		deps = append(deps, health.Dependency{Name: "cache", Pinger: local})
	}
	aside := cache.NewAside(store, cfg.CacheTTL, logger.Component("cache"))

	messageStore := idb.NewPostgresMessageRepository(a.db)
	messageRepo := cache.NewMessageRepository(messageStore, aside)
	projectRepo := cache.NewProjectRepository(idb.NewPostgresProjectRepository(a.db), messageStore, aside)
	templateRepo := idb.NewPostgresTemplateRepository(a.db)
	guard := idb.NewPostgresOutreachLog(a.db, cfg.OutreachGuardWindow)

	var backends []events.Backend
	switch cfg.EventBackend {
	case config.EventBackendRedis:
		c, err := redisClient()
		if err != nil {
			return nil, err
		}
		backends = append(backends, events.Backend{Name: "redis", Publisher: events.NewRedisPublisher(c)})
	case config.EventBackendRabbitMQ:
		rmq, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		a.onClose(rmq.Close)
		backends = append(backends, events.Backend{Name: "rabbitmq", Publisher: events.NewRabbitMQPublisher(rmq.Ch, cfg.RabbitMQExchange)})
		deps = append(deps, health.Dependency{Name: "rabbitmq", Pinger: health.PingerFunc(func(context.Context) error {
			if rmq.Conn.IsClosed() {
				return fmt.Errorf("rabbitmq connection closed")
			}
			return nil
		})})
	default:
		a.queue = events.NewInMemoryQueue(logger.Component("events"))
		events.SubscribeAuditLog(a.queue, logger.Component("audit"))
		backends = append(backends, events.Backend{Name: "memory", Publisher: events.NewQueuePublisher(a.queue)})
	}

	if cfg.TelegramEnabled() {
		a.bot, err = telegram.NewBot(cfg.TelegramToken, logger.Component("telegram"))
		if err != nil {
			return nil, err
		}
		notifier := events.NewTelegramNotifier(telegram.NewTelebotAdapter(a.bot), cfg.AdminTelegramID)
		backends = append(backends, events.Backend{Name: "telegram", Publisher: notifier})
	}
	publisher := events.NewMulti(backends...)

	clock := app.SystemClock{}
	a.messages = app.NewMessageService(messageRepo, projectRepo, templateRepo, guard, publisher, clock, logger.Component("messages"))
	a.projects = app.NewProjectService(projectRepo, templateRepo, logger.Component("projects"))
	a.replies = app.NewReplyHandler(a.messages, logger.Component("replies"))

	a.spinner = render.NewSpinner(nil)
	pass := app.NewOutreachScheduler(
		projectRepo,
		messageRepo,
		templateRepo,
		a.messages,
		render.NewRenderer(a.spinner),
		clock,
		cfg.SchedulerPageSize,
		logger.Component("outreach"),
	)
	a.cron = scheduler.NewOutreachCron(pass, logger.Component("scheduler"), cfg.CronSpecScheduler, cfg.SchedulerRunTimeout)
	a.health = health.NewChecker(deps...)

	if a.bot != nil {
		telegram.RegisterBotCommands(a.bot, cfg.AdminTelegramID, logger.Component("telegram"))
		telegram.NewAdminHandlers(ctx, a.cron, a.projects, a.messages, a.replies, cfg.AdminTelegramID, logger.Component("telegram")).
			Register(a.bot)
	}

	return a, nil
}
