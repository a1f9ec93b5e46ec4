package models

import "gorm.io/gorm"

// User is a dashboard account. Superusers may kill processes and use the terminal.
type User struct {
	gorm.Model

	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsSuperuser  bool   `gorm:"not null" json:"is_superuser"`
}
