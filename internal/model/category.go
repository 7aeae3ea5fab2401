package model

import "time"

// Category is a per-account label that todos may reference.
type Category struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"-" db:"account_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}
