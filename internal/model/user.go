// Package model defines database models
package model

import "time"

type User struct {
	ID           string `gorm:"primaryKey;size:32" json:"_id"`
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string `json:"phone"`
	PasswordHash string `gorm:"not null" json:"-"`
	Verified     bool   `gorm:"default:false" json:"verified"`

	// Set together while a verification is pending and cleared together on success
	VerificationCode    *string    `json:"-"`
	VerificationExpires *time.Time `gorm:"index" json:"-"`

	CartData  JSONMap   `gorm:"type:text" json:"cartData"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PendingVerification reports whether a code was issued and not used yet. The code
// may already be expired.
func (u *User) PendingVerification() bool {
	return u.VerificationCode != nil && u.VerificationExpires != nil
}
