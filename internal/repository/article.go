package repository

import (
	"context"

	"article-api/internal/domain"
)

// ArticleRepository exposes persistence operations for articles.
type ArticleRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, article *domain.Article) (string, error)
	// ListWithAuthors returns every article in the store's natural order with
	// its author resolved.
	ListWithAuthors(ctx context.Context) ([]domain.ArticleWithAuthor, error)
}
