package domain

import "time"

type User struct {
	ID        int64
	Username  string
	Email     string
	IsAdmin   bool
	IsActive  bool
	CreatedAt time.Time
}

type Registration struct {
	Message       string
	UserID        int64
	AccountID     int64
	AccountNumber string
}

type RegisterRequest struct {
	Username string
	Email    string
	Password string
}
