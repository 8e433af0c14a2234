package models

import "time"

type User struct {
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Preferences is a user's profile used to build the recommendation query.
// Interests are ranked: the first entry carries the most weight.
type Preferences struct {
	Username   string   `json:"username"`
	Gender     string   `json:"gender"`
	Role       string   `json:"role"`
	Department string   `json:"department"`
	Year       int      `json:"year"`
	Interests  []string `json:"interests"`
	PastEvents []string `json:"past_events"`
}
