package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"article-api/internal/cache"
	"article-api/internal/config"
	apphttp "article-api/internal/http"
	"article-api/internal/repository"
	"article-api/internal/repository/mongodb"
	"article-api/internal/repository/sqlite"
	"article-api/internal/service"
	"article-api/internal/storage"
)

type stores struct {
	users    repository.UserRepository
	articles repository.ArticleRepository
	close    func()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}
	if cfg.Auth.TokenTTL == 0 {
		logger.Warn("tokens are issued without expiration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer st.close()

	if err := st.users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := st.articles.Init(ctx); err != nil {
		logger.Fatalf("init article repository: %v", err)
	}

	var articleCache service.ArticleCache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.Connect(ctx, cfg.Redis.URL, cfg.Cache.TTL)
		if err != nil {
			logger.Warnf("redis unavailable, caching disabled: %v", err)
		} else {
			defer redisCache.Close()
			articleCache = redisCache
			logger.Info("article cache enabled")
		}
	}

	var archive service.ArticleArchive
	if cfg.Archive.Bucket != "" {
		s3Archive, err := buildArchive(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup archive: %v", err)
		}
		archive = s3Archive
	}

	userService := service.NewUserService(st.users, articleCache, cfg.Auth.BcryptCost, logger)
	articleService := service.NewArticleService(st.articles, userService, service.ArticleServiceConfig{
		Cache:   articleCache,
		Archive: archive,
		Logger:  logger,
	})
	tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	handler := apphttp.NewHandler(userService, articleService, tokens, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func openStores(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Infof("using sqlite store at %s", cfg.SQLite.Path)
		return &stores{
			users:    sqlite.NewUserRepository(db),
			articles: sqlite.NewArticleRepository(db),
			close:    closeDB(db, logger),
		}, nil
	default:
		client, db, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		logger.Infof("using mongodb database %s", cfg.Mongo.Database)
		return &stores{
			users:    mongodb.NewUserRepository(db),
			articles: mongodb.NewArticleRepository(db),
			close: func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(disconnectCtx); err != nil {
					logger.Warnf("mongodb disconnect: %v", err)
				}
			},
		}, nil
	}
}

func closeDB(db *sql.DB, logger *logrus.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warnf("sqlite close: %v", err)
		}
	}
}

func buildArchive(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*storage.S3Archive, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Archive.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Archive.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving articles to s3 bucket %s (region %s)", cfg.Archive.Bucket, cfg.Archive.Region)
	return storage.NewS3Archive(client, cfg.Archive.Bucket, cfg.Archive.KeyPrefix), nil
}
