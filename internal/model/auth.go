package model

import "time"

// LoginRequest is the payload for mock authentication. Any username/password pair is accepted.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=1,max=150"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
