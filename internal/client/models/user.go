// Package models defines the client-side domain types: users, conversations,
// messages and the pending operations queued while offline.
package models

import "strings"

// User mirrors the remote users/{id} document. The ID is assigned by the
// auth collaborator and never changes. Friend links are symmetric: both
// sides' Friends lists must contain each other.
type User struct {
	ID              string
	Email           string
	Name            string
	ProfileImageURL string
	Friends         []string
	PushToken       string
}

// DisplayName returns the profile name, falling back to the local part of
// the email address.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

// IsFriend reports whether id is in the user's friend list.
func (u *User) IsFriend(id string) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}
