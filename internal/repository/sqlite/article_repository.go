package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"article-api/internal/domain"
	"article-api/internal/repository"
)

// author_id carries no foreign key; the author is only checked on insert.
const createArticlesTable = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	author_id TEXT NOT NULL
);
`

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createArticlesTable); err != nil {
		return fmt.Errorf("create articles table: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) (string, error) {
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO articles (id, title, description, author_id)
VALUES (?, ?, ?, ?)`,
		id,
		article.Title,
		article.Description,
		article.AuthorID,
	); err != nil {
		return "", fmt.Errorf("insert article: %w", err)
	}
	article.ID = id
	return id, nil
}

func (r *ArticleRepository) ListWithAuthors(ctx context.Context) ([]domain.ArticleWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT a.id, a.title, a.description, a.author_id, u.id, u.name
FROM articles a
LEFT JOIN users u ON u.id = a.author_id
ORDER BY a.rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := []domain.ArticleWithAuthor{}
	for rows.Next() {
		var (
			item       domain.ArticleWithAuthor
			authorID   sql.NullString
			authorName sql.NullString
		)
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Description,
			&item.AuthorID,
			&authorID,
			&authorName,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if authorID.Valid {
			item.Author = &domain.AuthorSummary{ID: authorID.String, Name: authorName.String}
		}
		articles = append(articles, item)
	}

	return articles, rows.Err()
}
