package tools

import (
	"regexp"
	"strings"
)

var (
	idPattern    = regexp.MustCompile(`^[a-zA-Z0-9-_]+$`)
	namePattern  = regexp.MustCompile(`^[\w\s-]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

func validID(s string) bool    { return s != "" && idPattern.MatchString(s) }
func validPhone(s string) bool { return s != "" && phonePattern.MatchString(s) }
func validEmail(s string) bool { return s != "" && emailPattern.MatchString(s) }

// maskEmail hides the middle of the username, keeping the first and last
// two characters visible.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	username, domain := email[:at], email[at+1:]
	switch {
	case len(username) > 4:
		return username[:2] + strings.Repeat("*", len(username)-4) + username[len(username)-2:] + "@" + domain
	case len(username) > 0:
		return username[:1] + strings.Repeat("*", len(username)-1) + "@" + domain
	default:
		return email
	}
}

// maskPhone hides the middle four digits of a phone number.
func maskPhone(phone string) string {
	if len(phone) < 6 {
		return phone
	}
	mid := len(phone) / 2
	return phone[:mid-2] + "****" + phone[mid+2:]
}
