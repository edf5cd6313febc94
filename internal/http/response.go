package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"article-api/internal/domain"
)

// envelope is the body shape of every response.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// UserResponse mirrors the stored user document, password hash included.
type UserResponse struct {
	ID       string   `json:"_id"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Name     string   `json:"name,omitempty"`
	Age      *float64 `json:"age,omitempty"`
}

type ArticleResponse struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

type AuthorResponse struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// ArticleListItem is an article with its author populated; Author is null
// when the user no longer exists.
type ArticleListItem struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Author      *AuthorResponse `json:"author"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Password: user.PasswordHash,
		Name:     user.Name,
		Age:      user.Age,
	}
}

func articleToResponse(article domain.Article) ArticleResponse {
	return ArticleResponse{
		ID:          article.ID,
		Title:       article.Title,
		Description: article.Description,
		Author:      article.AuthorID,
	}
}

func articlesToResponse(articles []domain.ArticleWithAuthor) []ArticleListItem {
	resp := make([]ArticleListItem, len(articles))
	for i, a := range articles {
		resp[i] = ArticleListItem{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
		}
		if a.Author != nil {
			resp[i].Author = &AuthorResponse{ID: a.Author.ID, Name: a.Author.Name}
		}
	}
	return resp
}
