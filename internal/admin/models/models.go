package models

import (
	"strings"
	"time"

	id "gatepass/pkg/domain"
	"gatepass/pkg/email"
	"gatepass/pkg/platform/validation"
)

// Admin is an administrator account. PasswordHash is a bcrypt hash and never
// leaves the service.
type Admin struct {
	ID           id.AdminID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// RegisterRequest creates an admin account. bcrypt ignores input past 72 bytes.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,max=254,email"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

func (r *RegisterRequest) Validate() error {
	return validation.Struct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *LoginRequest) Validate() error {
	return validation.Struct(r)
}

type AdminResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewAdminResponse(a *Admin) *AdminResponse {
	return &AdminResponse{
		ID:        a.ID.String(),
		Email:     a.Email,
		Name:      a.Name,
		CreatedAt: a.CreatedAt,
	}
}

type TokenResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Admin       *AdminResponse `json:"admin"`
}
