// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name         string     `json:"name" gorm:"size:255;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Phone        string     `json:"phone,omitempty" gorm:"size:20"`
	Country      string     `json:"country,omitempty" gorm:"size:100"`
	City         string     `json:"city,omitempty" gorm:"size:100"`
	State        string     `json:"state,omitempty" gorm:"size:100"`
	ZipCode      string     `json:"zip_code,omitempty" gorm:"size:20"`
	Address      string     `json:"address,omitempty" gorm:"type:text"`
	Role         Role       `json:"role" gorm:"type:varchar(20);default:'user';not null"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
