// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Fields collects per-field validation messages.
type Fields map[string]string

func (f Fields) length(name, value string, minLen, maxLen int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n < minLen:
		f[name] = fmt.Sprintf("must be at least %d characters", minLen)
	case n > maxLen:
		f[name] = fmt.Sprintf("must be at most %d characters", maxLen)
	}
}

func (f Fields) email(name, value string) {
	if value == "" {
		f[name] = "is required"
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@")+1:], ".") {
		f[name] = "must be a valid email address"
	}
}

// Err returns f when it holds at least one message, nil otherwise.
func (f Fields) Err() Fields {
	if len(f) == 0 {
		return nil
	}
	return f
}

// MessageResponse is the uniform ambient success body.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
