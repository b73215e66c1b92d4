package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"supportlens/internal/ai"
	"supportlens/internal/app"
	"supportlens/internal/cache"
	"supportlens/internal/config"
	"supportlens/internal/model"
	"supportlens/internal/platform/logger"
	mysqlClient "supportlens/internal/platform/mysql"
	postgresClient "supportlens/internal/platform/postgres"
	rabbitmqClient "supportlens/internal/platform/rabbitmq"
	redisClient "supportlens/internal/platform/redis"
	"supportlens/internal/repository"
	"supportlens/internal/retrieval"
	"supportlens/internal/worker"
)

type Options struct {
	// StartWorker consumes the citation queue in this process. Only the
	// server sets it; CLI runs publish and leave consumption to the server.
	StartWorker bool
}

// App owns every long-lived resource and the services built on them.
type App struct {
	Config         *config.Config
	Logger         *logger.Logger
	Postgres       *gorm.DB
	LogDB          *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	CitationWorker *worker.CitationPersistWorker

	Ingest    *app.IngestService
	Search    *app.SearchService
	Query     *app.QueryService
	Analytics *app.AnalyticsService

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	if err := a.openStores(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.wire(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config

	pg, err := postgresClient.New(ctx, cfg.PostgresDSN(), a.Logger)
	if err != nil {
		return err
	}
	a.Postgres = pg

	switch strings.ToLower(cfg.LogStore.Driver) {
	case "", "postgres":
		a.LogDB = pg
	case "mysql":
		logDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), a.Logger)
		if err != nil {
			return err
		}
		a.LogDB = logDB
	default:
		return fmt.Errorf("unknown logstore driver %q", cfg.LogStore.Driver)
	}

	chunkRepo := repository.NewChunkRepository(pg, cfg.Postgres.Table)
	if err := chunkRepo.Migrate(cfg.LLM.EmbeddingDim); err != nil {
		return err
	}
	if err := pg.AutoMigrate(&model.SourceDocument{}); err != nil {
		return fmt.Errorf("auto migrate source documents failed: %w", err)
	}
	if err := a.LogDB.AutoMigrate(&model.QueryLog{}, &model.CitedDocument{}); err != nil {
		return fmt.Errorf("auto migrate log tables failed: %w", err)
	}

	if cfg.Redis.Enabled {
		client, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.Redis = client
	}

	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		a.MQConn = conn
	}
	return nil
}

func (a *App) wire(ctx context.Context, opts Options) error {
	cfg := a.Config

	llm := ai.NewOpenAICompatibleClient(ai.ClientConfig{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		EmbeddingModel:    cfg.LLM.EmbeddingModel,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Timeout:           time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	chunkRepo := repository.NewChunkRepository(a.Postgres, cfg.Postgres.Table)
	sourceRepo := repository.NewSourceDocumentRepository(a.Postgres)
	logRepo := repository.NewQueryLogRepository(a.LogDB)
	citedRepo := repository.NewCitedDocumentRepository(a.LogDB)

	var lock app.IngestLocker
	if a.Redis != nil {
		lock = cache.NewIngestLock(a.Redis, time.Duration(cfg.Ingest.LockTTLSeconds)*time.Second)
	}

	var sink app.CitationSink = citedRepo
	if a.MQConn != nil {
		sink = rabbitmqClient.NewCitationPublisher(a.MQConn, cfg.RabbitMQ.CitationQueue)
		if opts.StartWorker {
			a.CitationWorker = worker.NewCitationPersistWorker(a.MQConn, citedRepo, cfg.RabbitMQ.CitationQueue, a.Logger)
			if err := a.CitationWorker.Start(ctx); err != nil {
				return fmt.Errorf("start citation worker failed: %w", err)
			}
		}
	}

	retriever := retrieval.NewHybridRetriever(llm, chunkRepo, cfg.Retrieval.RRFK, a.Logger)
	recorder := app.NewQueryRecorder(logRepo, sink, a.Logger)
	generator := ai.NewCitationGenerator(retriever, llm, cfg.Retrieval.CitationChunkSize)

	a.Ingest = app.NewIngestService(
		app.IngestConfig{
			StagingDir:       cfg.Ingest.StagingDir,
			EmbedBatchSize:   cfg.LLM.EmbedBatchSize,
			EmbedConcurrency: cfg.LLM.EmbedConcurrency,
		},
		ai.NewSplitter(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap),
		llm,
		chunkRepo,
		sourceRepo,
		lock,
		a.Logger,
	)
	a.Search = app.NewSearchService(retriever, recorder, a.Logger)
	a.Query = app.NewQueryService(generator, app.BracketCitationExtractor{}, recorder, cfg.Retrieval.AnswerTopK, a.Logger)
	a.Analytics = app.NewAnalyticsService(logRepo, citedRepo, chunkRepo, a.Logger)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.CitationWorker != nil {
		a.CitationWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	for _, db := range a.sqlStores() {
		sqlDB, err := db.DB()
		if err != nil {
			continue
		}
		if err := sqlDB.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}

func (a *App) sqlStores() []*gorm.DB {
	var out []*gorm.DB
	if a.Postgres != nil {
		out = append(out, a.Postgres)
	}
	if a.LogDB != nil && a.LogDB != a.Postgres {
		out = append(out, a.LogDB)
	}
	return out
}
