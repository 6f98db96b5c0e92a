package model

import "time"

// Task is a single agenda entry. The store assigns ID and CreatedAt;
// CreatedAt is never updated afterwards and is the sole sort key.
// DueDate serializes as an explicit null when unset, never as a missing
// field.
type Task struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"createdAt"`
	DueDate   *time.Time `json:"dueDate"`
}

// Identity is the opaque, store-issued identifier scoping which tasks a
// session may read or write.
type Identity struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
