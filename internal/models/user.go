package models

import (
	"time"
)

type Role string

const (
	RoleUser        Role = "USER"
	RoleContributor Role = "CONTRIBUTOR"
	RoleGrad        Role = "GRAD"
	RoleProfessor   Role = "PROFESSOR"
	RoleAdmin       Role = "ADMIN"
)

// User 由外部身份提供方创建, ID 即 token 中的 sub
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `json:"name"`
	Email     string    `gorm:"index" json:"email"`
	Image     string    `json:"image"` // avatar url
	Profile   *Profile  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"profile,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Profile struct {
	UserID      string    `gorm:"primaryKey;size:64" json:"userId"`
	DisplayName string    `gorm:"size:100" json:"displayName"`
	Role        Role      `gorm:"size:20;default:'USER';not null" json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the profile carries the administrative role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
