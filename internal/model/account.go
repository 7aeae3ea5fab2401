package model

import "time"

// Account owns a private set of todos and categories.
type Account struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// User is the identity carried in a session token and kept by the client.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Credentials is the register and login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
