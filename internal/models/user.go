package models

import "gorm.io/gorm"

type User struct {
	gorm.Model

	Username     string  `gorm:"uniqueIndex;not null"`
	Email        string  `gorm:"uniqueIndex;not null"`
	PasswordHash *string // nil for SSO-only accounts
	Role         Role    `gorm:"type:varchar(64);not null;default:read_only"`
	AzureOID     *string `gorm:"column:azure_oid;uniqueIndex"` // Azure AD object id, nil for local-only accounts

	// Relationships
	OwnedProjects    []Project  `gorm:"foreignKey:OwnerID"`
	CreatedBaselines []Baseline `gorm:"foreignKey:CreatedByID"`
}

// CanAuthenticate reports whether at least one credential (local password or
// linked external identity) exists for this account.
func (u *User) CanAuthenticate() bool {
	return u.PasswordHash != nil || u.AzureOID != nil
}
