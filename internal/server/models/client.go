package models

import (
	"strings"
	"time"
)

type Client struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// NormalizeEmail is the form under which client emails are stored and
// looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
