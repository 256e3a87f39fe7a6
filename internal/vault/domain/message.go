package domain

import "time"

// Message is a single vault delivery. Subject is optional; IsRead starts
// false and only ever flips to true.
type Message struct {
	ID          string    `json:"id"`
	SenderName  string    `json:"senderName"`
	SenderEmail string    `json:"senderEmail"`
	Subject     string    `json:"subject,omitempty"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      string    `json:"-"`
}
