package types

import "time"

// Experience is a stored record of a past professional accomplishment. It is
// owned by the vector store; the matching pipeline only reads it.
type Experience struct {
	ID         string    `json:"id"`
	Company    string    `json:"company"`
	Text       string    `json:"text"`
	Role       string    `json:"role,omitempty"`
	Duration   string    `json:"duration,omitempty"`
	Skills     []string  `json:"skills,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
