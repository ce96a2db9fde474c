package domain

import (
	"strings"
)

// UserStatus represents the account state of a directory user.
type UserStatus string

const (
	StatusActive   UserStatus = "ACTIVE"
	StatusInactive UserStatus = "INACTIVE"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

// NormalizeGender upper-cases g and returns "" for anything other than MALE or FEMALE.
func NormalizeGender(g string) string {
	switch up := strings.ToUpper(strings.TrimSpace(g)); up {
	case GenderMale, GenderFemale:
		return up
	default:
		return ""
	}
}

// User is a directory entry as exposed by the remote collection.
type User struct {
	ID          int64      `json:"id"`
	UserName    string     `json:"userName"`
	FullName    string     `json:"fullName"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	BirthDay    *Date      `json:"birthDay,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Status      UserStatus `json:"status"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedTime *Timestamp `json:"createdTime,omitempty"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
	UpdatedTime *Timestamp `json:"updatedTime,omitempty"`
	UserRoles   []UserRole `json:"userRoles"`
}

// EmailLocalPart returns the part of the email address before '@'.
func (u User) EmailLocalPart() string {
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
