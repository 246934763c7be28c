// Package domain contains the local mirror of identity-provider users.
package domain

import (
	"context"
	"errors"
	"time"
)

// User is the local record for an identity-provider account. The primary
// key is the provider's entity id, which makes event replays naturally
// idempotent.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Email     string    `gorm:"type:text;not null" json:"email"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	ImageURL  *string   `gorm:"column:image_url;type:text" json:"image_url,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Repository interface {
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*User, error)
}

var ErrNotFound = errors.New("not_found")
