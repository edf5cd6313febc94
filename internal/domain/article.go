package domain

// Article is a piece of content published by a user.
type Article struct {
	ID          string
	Title       string
	Description string
	AuthorID    string
}

// AuthorSummary is the subset of a user resolved into article listings.
type AuthorSummary struct {
	ID   string
	Name string
}

// ArticleWithAuthor pairs an article with its resolved author. Author is nil
// when the referenced user no longer exists.
type ArticleWithAuthor struct {
	Article
	Author *AuthorSummary
}
