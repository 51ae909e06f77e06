/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// User is an account of the chat. Rows are created by the identity provider on first sign-in,
// this service only reads them and assigns the username.
type User struct {
	ID            string    `gorm:"primaryKey;size:191" json:"id"`                  // Identifier issued by the identity provider
	Username      *string   `gorm:"uniqueIndex;size:191" json:"username,omitempty"` // Public handle, nil until chosen
	Email         *string   `gorm:"uniqueIndex;size:191" json:"email,omitempty"`    // Contact address, if the provider shared one
	EmailVerified bool      `gorm:"not null" json:"emailVerified"`
	Name          *string   `gorm:"size:191" json:"name,omitempty"`
	Image         *string   `gorm:"type:text" json:"image,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Handle returns the username, or the empty string when it was never set
func (u *User) Handle() string {
	if u == nil || u.Username == nil {
		return ""
	}
	return *u.Username
}
