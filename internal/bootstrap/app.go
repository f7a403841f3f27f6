package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/GenJess/file-chat-sage/internal/config"
	"github.com/GenJess/file-chat-sage/internal/credential"
	"github.com/GenJess/file-chat-sage/internal/kb"
	"github.com/GenJess/file-chat-sage/internal/model"
	minioClient "github.com/GenJess/file-chat-sage/internal/platform/minio"
	mysqlClient "github.com/GenJess/file-chat-sage/internal/platform/mysql"
	rabbitmqClient "github.com/GenJess/file-chat-sage/internal/platform/rabbitmq"
	redisClient "github.com/GenJess/file-chat-sage/internal/platform/redis"
	"github.com/GenJess/file-chat-sage/internal/repository"
	"github.com/GenJess/file-chat-sage/internal/worker"
)

type App struct {
	Config          *config.Config
	Logger          *zap.Logger
	MySQL           *gorm.DB
	Redis           *redis.Client
	MQConn          *amqp.Connection
	ObjectStore     *minioClient.ObjectStore
	KnowledgeClient *kb.Client
	CredentialStore credential.Store
	PersistWorker   *worker.TranscriptPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context, logger *zap.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, mysqlClient.Config{
		DSN:             cfg.MySQLDSN(),
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		ConnMaxLifetime: time.Duration(cfg.MySQL.ConnMaxLifeMinute) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.MySQL.ConnMaxIdleMinute) * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.ArchivedMessage{},
		&model.APIKey{},
		&model.Resume{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, redisClient.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  time.Duration(cfg.Redis.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.Redis.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Redis.WriteTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.TranscriptQueueName)
	if err != nil {
		return nil, err
	}

	objectStore, err := minioClient.New(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Secure, cfg.MinIO.Bucket)
	if err != nil {
		return nil, err
	}

	archiveRepo := repository.NewArchivedMessageRepository(mysqlDB)
	persistWorker := worker.NewTranscriptPersistWorker(mqConn, archiveRepo, cfg.RabbitMQ.TranscriptQueueName, logger)
	if err := persistWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start transcript worker failed: %w", err)
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		MySQL:           mysqlDB,
		Redis:           redisCli,
		MQConn:          mqConn,
		ObjectStore:     objectStore,
		KnowledgeClient: kb.NewClient(cfg.Knowledge.BaseURL),
		CredentialStore: credential.NewFileStore(cfg.Credential.Path),
		PersistWorker:   persistWorker,
		StartedAt:       time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.PersistWorker != nil {
		a.PersistWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
