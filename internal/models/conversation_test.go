package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"user", NewMessage(RoleUser, "hi"), false},
		{"assistant", NewMessage(RoleAssistant, "hello"), false},
		{"system", NewMessage(RoleSystem, "be nice"), false},
		{"unknown role", NewMessage(Role("tool"), "x"), true},
		{"empty role", NewMessage("", "x"), true},
		{"blank content", NewMessage(RoleUser, "  \n"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionIDOrDefault(t *testing.T) {
	assert.Equal(t, DefaultSessionID, SessionIDOrDefault(""))
	assert.Equal(t, "abc", SessionIDOrDefault("abc"))
}
