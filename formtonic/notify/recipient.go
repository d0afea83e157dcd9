package notify

import (
	"fmt"
	"net/mail"
	"strings"
)

// Recipient is a person who received a notification for a submission.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// String formats the recipient as an RFC 5322 address.
func (r Recipient) String() string {
	if r.Name == "" {
		return r.Email
	}
	addr := mail.Address{Name: r.Name, Address: r.Email}
	return addr.String()
}

// ParseRecipient parses an address of the form "Jane Doe <jane@example.org>"
// or a bare e-mail address.
func ParseRecipient(s string) (Recipient, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return Recipient{}, fmt.Errorf("invalid recipient %q: %w", s, err)
	}
	return Recipient{Name: addr.Name, Email: addr.Address}, nil
}

// IsValidRecipient reports whether s parses as a single address.
func IsValidRecipient(s string) bool {
	_, err := ParseRecipient(s)
	return err == nil
}

// ParseRecipients parses a list of addresses and returns the valid ones
// together with the entries that failed to parse.
func ParseRecipients(list []string) ([]Recipient, []string) {
	valid := make([]Recipient, 0, len(list))
	invalid := make([]string, 0)
	for _, s := range list {
		r, err := ParseRecipient(s)
		if err != nil {
			invalid = append(invalid, s)
			continue
		}
		valid = append(valid, r)
	}
	return valid, invalid
}
