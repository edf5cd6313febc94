package domain

// User represents an account that can log in and publish articles.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Age          *float64
}
