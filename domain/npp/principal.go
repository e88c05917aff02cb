package npp

import "strings"

// User is a SharePoint site user.
type User struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Email     string `json:"email"`
	LoginName string `json:"loginName"`
}

// NormalizedEmail lowercases and trims the user's email.
func (u User) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(u.Email))
}

// Group is a SharePoint site group.
type Group struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Role definition names granted to permission groups on folders.
const (
	RoleContribute = "Contribute"
	RoleRead       = "Read"
)
