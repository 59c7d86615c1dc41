package models

import "time"

// User is an operator account
// Maps to MySQL table: users
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LoginRequest - POST /api/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpRequest - POST /api/sign-up
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// AuthResponse is returned by login and sign-up
type AuthResponse struct {
	Message string `json:"message,omitempty"`
	Token   string `json:"token"`
}

// Profile - GET /api/profile
type Profile struct {
	Email string `json:"email"`
}
