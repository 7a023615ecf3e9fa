package models

import "time"

// Question is a Q&A board entry scoped to a department.
type Question struct {
	ID         string    `json:"id"`
	Department string    `json:"department"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Image      string    `json:"image,omitempty"`
	Answers    []Answer  `json:"answers"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Answer is appended to a question; answers are never edited or removed.
type Answer struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}
