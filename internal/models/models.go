package models

import "time"

type User struct {
	ID                  uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username            string     `gorm:"uniqueIndex;not null"     json:"username"`
	Email               string     `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash        string     `gorm:"not null"                 json:"-"`
	FirstName           string     `json:"first_name,omitempty"`
	LastName            string     `json:"last_name,omitempty"`
	Enabled             bool       `gorm:"default:true"             json:"enabled"`
	AccountLocked       bool       `gorm:"default:false"            json:"account_locked"`
	FailedLoginAttempts int        `gorm:"default:0"                json:"-"`
	LockTime            *time.Time `json:"-"`
	Roles               []Role     `gorm:"many2many:user_roles"     json:"roles"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// RoleNames flattens the association for token claims and responses.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null"     json:"name"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID    uint      `gorm:"index;not null"       json:"user_id"`
	IssuedAt  time.Time `gorm:"not null"             json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
	Revoked   bool      `gorm:"default:false"        json:"revoked"`
}

// Usable reports whether the token can still be exchanged for an
// access token. Expiry is checked lazily, nothing sweeps expired rows.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
