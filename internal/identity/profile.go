package identity

import "strings"

// Profile is the normalized record an external provider hands back after a
// completed handshake. Providers guarantee nothing about it: every field,
// including the id, must be treated as possibly empty.
type Profile struct {
	ID          string
	DisplayName string
	Login       string
	Emails      []string
	Email       string
	Photos      []string
	AvatarURL   string
	Location    string
}

// ResolveEmail picks the address used to key the local record: the first
// entry of Emails, else the flat Email field. The second return is false
// when the profile carries no usable address.
func (p *Profile) ResolveEmail() (string, bool) {
	if len(p.Emails) > 0 && p.Emails[0] != "" {
		return p.Emails[0], true
	}
	if p.Email != "" {
		return p.Email, true
	}
	return "", false
}

// ResolveName picks the display name for a new record: DisplayName, else
// the provider login, else "User".
func (p *Profile) ResolveName() string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	if p.Login != "" {
		return p.Login
	}
	return "User"
}

// SplitName derives first and last name from DisplayName. The first
// whitespace token becomes the first name ("User" when there is none) and
// the remaining tokens, joined by single spaces, become the last name.
func (p *Profile) SplitName() (string, string) {
	fields := strings.Fields(p.DisplayName)
	if len(fields) == 0 {
		return "User", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// ResolveAvatar picks the avatar URL for a record: the first photo, else
// the provider avatar field, else nil.
func (p *Profile) ResolveAvatar() *string {
	if len(p.Photos) > 0 && p.Photos[0] != "" {
		avatar := p.Photos[0]
		return &avatar
	}
	if p.AvatarURL != "" {
		avatar := p.AvatarURL
		return &avatar
	}
	return nil
}
