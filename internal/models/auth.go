package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole identifies who is acting on the class bank.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
	RoleGuest   UserRole = "guest"
)

// TeacherLoginRequest carries the teacher PIN.
type TeacherLoginRequest struct {
	Pin       string `json:"pin" validate:"required,min=4,max=32"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Role        UserRole  `json:"role"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the claims embedded in access tokens.
type JWTClaims struct {
	Role UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination describes a paged listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
