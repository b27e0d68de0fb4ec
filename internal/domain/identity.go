package domain

// Identity is the authenticated user attached to a connection before upgrade.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

// Label is the name used as chat author and product creator.
func (i Identity) Label() string {
	if i.Anonymous {
		return ""
	}
	if i.Email != "" {
		return i.Email
	}
	return i.UserID
}
