package domain

import "strings"

// Draft is the create/update payload. It carries only the fields an admin can
// edit: no id and no audit fields, so an update never overwrites them.
type Draft struct {
	UserName  string     `json:"userName"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	BirthDay  *Date      `json:"birthDay,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	Status    UserStatus `json:"status,omitempty"`
	UserRoles []UserRole `json:"userRoles"`
}

// NewDraft returns the blank form used when creating a user.
func NewDraft() Draft {
	return Draft{Status: StatusActive, UserRoles: []UserRole{}}
}

// DraftFromUser copies every editable field of u.
func DraftFromUser(u User) Draft {
	d := Draft{
		UserName: u.UserName,
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
		Gender:   u.Gender,
		Status:   u.Status,
	}
	if u.BirthDay != nil {
		bd := *u.BirthDay
		d.BirthDay = &bd
	}
	d.UserRoles = make([]UserRole, len(u.UserRoles))
	copy(d.UserRoles, u.UserRoles)
	return d
}

// Normalize trims free-text fields in place.
func (d *Draft) Normalize() {
	d.UserName = strings.TrimSpace(d.UserName)
	d.FullName = strings.TrimSpace(d.FullName)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Gender = NormalizeGender(d.Gender)
	if d.UserRoles == nil {
		d.UserRoles = []UserRole{}
	}
	for i := range d.UserRoles {
		r := &d.UserRoles[i]
		r.Type = strings.TrimSpace(r.Type)
		r.Bank = strings.TrimSpace(r.Bank)
		r.Branch = strings.TrimSpace(r.Branch)
		r.RoleName = strings.TrimSpace(r.RoleName)
	}
}

// RoleIndex returns the position of the assignment with the given key, or -1.
func (d Draft) RoleIndex(key string) int {
	for i, r := range d.UserRoles {
		if r.Key() == key {
			return i
		}
	}
	return -1
}
