package models

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSessionID is used when a request carries no session id.
const DefaultSessionID = "default"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

type Message struct {
	Role    Role   `json:"role"` // user, assistant, or system
	Content string `json:"content"`
}

func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

var ErrEmptyContent = errors.New("message content is empty")

// Validate reports whether the message can be appended to a conversation log.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("invalid role %q", m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// SessionIDOrDefault maps an absent session id to DefaultSessionID.
func SessionIDOrDefault(id string) string {
	if id == "" {
		return DefaultSessionID
	}
	return id
}
