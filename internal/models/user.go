package models

// Role is the authorization level of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// DefaultTimeZone is assigned to users created without an explicit zone.
const DefaultTimeZone = "Asia/Shanghai"

// User owns every other ledger entity.
type User struct {
	Base
	Username     string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	IsActive     bool   `gorm:"not null" json:"isActive"`
	Role         Role   `gorm:"size:10;not null;default:user;index" json:"role"`
	TimeZone     string `gorm:"size:64;not null;default:Asia/Shanghai" json:"timeZone"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
