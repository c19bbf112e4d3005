package auth

import (
	"errors"
	"time"
)

type SignupDTO struct {
	Email    string `json:"email"     binding:"required,email,max=254"`
	Password string `json:"password"  binding:"required,min=8,max=128"`
	FullName string `json:"full_name" binding:"required,max=50"`
}

type SigninDTO struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
	User    any       `json:"user"`
}

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("account is disabled")
)
