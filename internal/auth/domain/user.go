package domain

import "time"

type UserID string

type User struct {
	ID           UserID
	Email        string
	PasswordHash string
	SecretCode   string
	CreatedAt    time.Time
}

// Summary is the account shape returned to callers: never the verifier,
// never the secret code.
type Summary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u User) Summary() Summary {
	return Summary{
		ID:    string(u.ID),
		Email: u.Email,
	}
}
