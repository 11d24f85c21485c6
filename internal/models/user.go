package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User represents a registered traveller account
type User struct {
	ID                     uuid.UUID      `json:"id" db:"id"`
	Username               string         `json:"username" db:"username"`
	Name                   *string        `json:"name,omitempty" db:"name"`
	Email                  string         `json:"email" db:"email"`
	PasswordHash           string         `json:"-" db:"password_hash"`
	Phone                  *string        `json:"phone,omitempty" db:"phone"`
	IsNewsletterSubscribed bool           `json:"isNewsletterSubscribed" db:"is_newsletter_subscribed"`
	Language               string         `json:"language" db:"language"`
	Notifications          bool           `json:"notifications" db:"notifications"`
	Roles                  pq.StringArray `json:"roles" db:"roles"`
	LastLoginAt            *time.Time     `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt              time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time      `json:"updatedAt" db:"updated_at"`
}

// Default user preferences
const (
	DefaultLanguage = "en"
	RoleTraveller   = "traveller"
	RoleAdmin       = "admin"
)

// HasRole checks if user has a specific role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the public view of a user returned by the auth endpoints
type Profile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone,omitempty"`
}

// ToProfile returns the public view of the user
func (u *User) ToProfile() Profile {
	p := Profile{ID: u.ID, Username: u.Username, Email: u.Email}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	return p
}
