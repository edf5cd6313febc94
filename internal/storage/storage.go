package storage

import (
	"fmt"
	"strings"

	"article-api/internal/domain"
)

// ArchivedArticle is the JSON document written for each archived article.
type ArchivedArticle struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

func newArchivedArticle(article domain.Article) ArchivedArticle {
	return ArchivedArticle{
		ID:          article.ID,
		Title:       article.Title,
		Description: article.Description,
		Author:      article.AuthorID,
	}
}

// ObjectKey returns the key under which an article is archived.
func ObjectKey(prefix string, article domain.Article) string {
	key := fmt.Sprintf("users/%s/articles/%s.json", article.AuthorID, article.ID)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
