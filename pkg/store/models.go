package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID              string `gorm:"primaryKey"`
	Username        string `gorm:"uniqueIndex;not null"`
	Email           string `gorm:"index"`
	DateOfBirth     *datatypes.Date
	ProfilePhotoKey string
	PasswordHash    string         `gorm:"not null"`
	Role            string         `gorm:"not null"`
	Status          string         `gorm:"not null"`
	Perms           datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time
}

type BookModel struct {
	ID              string  `gorm:"primaryKey"`
	Title           string  `gorm:"not null;index"`
	Author          string  `gorm:"not null;index"`
	PublicationYear int     `gorm:"not null;index"`
	ISBN            *string `gorm:"uniqueIndex"`
	Description     string  `gorm:"type:text"`
	AddedByID       *string `gorm:"index"`
	AddedBy         *UserModel `gorm:"foreignKey:AddedByID;constraint:OnDelete:SET NULL"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

type AuthorModel struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

type LibraryModel struct {
	ID        string      `gorm:"primaryKey"`
	Name      string      `gorm:"uniqueIndex;not null"`
	Books     []BookModel `gorm:"many2many:library_books;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"not null"`
}

type LibrarianModel struct {
	ID        string       `gorm:"primaryKey"`
	Name      string       `gorm:"not null"`
	LibraryID string       `gorm:"uniqueIndex;not null"`
	Library   LibraryModel `gorm:"foreignKey:LibraryID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time    `gorm:"not null"`
}
