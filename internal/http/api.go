package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"article-api/internal/service"
)

const (
	msgWelcome          = "Welcome to the article API"
	msgUserCreated      = "User created successfully"
	msgEmailExists      = "Email already exists"
	msgLoggedIn         = "Logged in successfully"
	msgBadCredentials   = "Invalid email or password"
	msgArticleCreated   = "Article created successfully"
	msgArticlesFetched  = "Articles fetched successfully"
	msgUserUpdated      = "User updated successfully"
	msgUserNotFound     = "User not found"
	msgInvalidBody      = "Invalid request body"
	msgRouteNotFound    = "Route not found"
	msgSignupFailed     = "An error occurred while signing up"
	msgLoginFailed      = "An error occurred while logging in"
	msgCreateFailed     = "An error occurred while creating the article"
	msgListFailed       = "An error occurred while fetching articles"
	msgUpdateUserFailed = "An error occurred while updating the user"
)

// TokenIssuer issues bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	articles service.ArticleService
	tokens   TokenIssuer
	logger   logrus.FieldLogger
}

func NewHandler(users service.UserService, articles service.ArticleService, tokens TokenIssuer, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:    users,
		articles: articles,
		tokens:   tokens,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(recoveryMiddleware(h.logger), loggingMiddleware(h.logger), corsMiddleware())
	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, msgRouteNotFound)
	})

	router.GET("/", func(c *gin.Context) {
		respond(c, http.StatusOK, nil, msgWelcome)
	})

	api := router.Group("/api")
	{
		api.POST("/signup", h.signup)
		api.POST("/login", h.login)
		api.POST("/users/:userId/articles", h.createArticle)
		api.PATCH("/users/:userId", h.updateUser)
		api.GET("/articles", h.listArticles)
		api.GET("/health", func(c *gin.Context) {
			respond(c, http.StatusOK, gin.H{"ok": "ok"}, "healthy")
		})
	}
}

type signupRequest struct {
	Email    string   `json:"email" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Name     string   `json:"name"`
	Age      *float64 `json:"age"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createArticleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateUserRequest struct {
	Name *string  `json:"name"`
	Age  *float64 `json:"age"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.users.Signup(c.Request.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Age:      req.Age,
	})
	switch {
	case errors.Is(err, service.ErrEmailExists):
		respondError(c, http.StatusBadRequest, msgEmailExists)
		return
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	case err != nil:
		h.internalError(c, err, msgSignupFailed)
		return
	}

	respond(c, http.StatusCreated, userToResponse(*user), msgUserCreated)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, msgBadCredentials)
			return
		}
		h.internalError(c, err, msgLoginFailed)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.internalError(c, err, msgLoginFailed)
		return
	}

	respond(c, http.StatusOK, TokenResponse{Token: token}, msgLoggedIn)
}

func (h *Handler) createArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	article, err := h.articles.CreateArticle(c.Request.Context(), c.Param("userId"), req.Title, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, msgUserNotFound)
			return
		}
		h.internalError(c, err, msgCreateFailed)
		return
	}

	respond(c, http.StatusCreated, articleToResponse(*article), msgArticleCreated)
}

func (h *Handler) listArticles(c *gin.Context) {
	articles, err := h.articles.ListArticles(c.Request.Context())
	if err != nil {
		h.internalError(c, err, msgListFailed)
		return
	}

	respond(c, http.StatusOK, articlesToResponse(articles), msgArticlesFetched)
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), c.Param("userId"), req.Name, req.Age)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, msgUserNotFound)
			return
		}
		h.internalError(c, err, msgUpdateUserFailed)
		return
	}

	respond(c, http.StatusOK, userToResponse(*user), msgUserUpdated)
}

// internalError logs err and answers with a generic 500; err never reaches the client.
func (h *Handler) internalError(c *gin.Context, err error, message string) {
	h.logger.WithError(err).WithField("path", c.FullPath()).Error(message)
	respondError(c, http.StatusInternalServerError, message)
}
