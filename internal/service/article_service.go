package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"article-api/internal/domain"
	"article-api/internal/repository"
)

// ArticleCache holds the resolved article listing between writes. GetArticles
// reports the cache generation it looked at; SetArticles must be given that
// generation so a listing loaded before an invalidation is never served.
type ArticleCache interface {
	GetArticles(ctx context.Context) ([]domain.ArticleWithAuthor, int64, bool, error)
	SetArticles(ctx context.Context, generation int64, articles []domain.ArticleWithAuthor) error
	InvalidateArticles(ctx context.Context) error
}

// ArticleArchive keeps a copy of every published article outside the store.
type ArticleArchive interface {
	ArchiveArticle(ctx context.Context, article domain.Article) (string, error)
}

// ArticleService coordinates article publishing and listing.
type ArticleService interface {
	CreateArticle(ctx context.Context, userID, title, description string) (*domain.Article, error)
	ListArticles(ctx context.Context) ([]domain.ArticleWithAuthor, error)
}

// ArticleServiceConfig wires the optional collaborators of the article service.
type ArticleServiceConfig struct {
	Cache   ArticleCache
	Archive ArticleArchive
	Logger  logrus.FieldLogger
}

type articleService struct {
	articles repository.ArticleRepository
	users    UserService
	cache    ArticleCache
	archive  ArticleArchive
	logger   logrus.FieldLogger
}

func NewArticleService(articles repository.ArticleRepository, users UserService, cfg ArticleServiceConfig) ArticleService {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &articleService{
		articles: articles,
		users:    users,
		cache:    cfg.Cache,
		archive:  cfg.Archive,
		logger:   logger,
	}
}

func (s *articleService) CreateArticle(ctx context.Context, userID, title, description string) (*domain.Article, error) {
	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup author: %w", err)
	}

	article := &domain.Article{
		Title:       title,
		Description: description,
		AuthorID:    author.ID,
	}
	if _, err := s.articles.Create(ctx, article); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateArticles(ctx); err != nil {
			s.logger.WithError(err).Warn("invalidate article cache")
		}
	}
	if s.archive != nil {
		location, err := s.archive.ArchiveArticle(ctx, *article)
		if err != nil {
			s.logger.WithError(err).WithField("article_id", article.ID).Warn("archive article")
		} else {
			s.logger.WithField("location", location).Debug("article archived")
		}
	}

	return article, nil
}

func (s *articleService) ListArticles(ctx context.Context) ([]domain.ArticleWithAuthor, error) {
	var generation int64
	cacheUsable := s.cache != nil
	if cacheUsable {
		cached, gen, ok, err := s.cache.GetArticles(ctx)
		switch {
		case err != nil:
			s.logger.WithError(err).Warn("read article cache")
			cacheUsable = false
		case ok:
			return cached, nil
		}
		generation = gen
	}

	articles, err := s.articles.ListWithAuthors(ctx)
	if err != nil {
		return nil, err
	}

	if cacheUsable {
		if err := s.cache.SetArticles(ctx, generation, articles); err != nil {
			s.logger.WithError(err).Warn("write article cache")
		}
	}
	return articles, nil
}
