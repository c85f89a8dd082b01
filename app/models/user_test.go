package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("alice@example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, ROLE_USER, u.Role)
	assert.Equal(t, STATUS_ACTIVE, u.Status)
	assert.Len(t, u.InviteCode, 16)
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"invalid email", "not-an-email", "secret123"},
		{"short password", "alice@example.com", "abc"},
		{"empty email", "", "secret123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateUser(tt.email, tt.password)
			assert.Error(t, err)
		})
	}
}

func TestGenerateInviteCodeUnique(t *testing.T) {
	u1 := &User{}
	u2 := &User{}
	require.NoError(t, u1.GenerateInviteCode())
	require.NoError(t, u2.GenerateInviteCode())
	assert.NotEqual(t, u1.InviteCode, u2.InviteCode)
}

func TestIsAgent(t *testing.T) {
	assert.False(t, (&User{Role: ROLE_USER}).IsAgent())
	assert.True(t, (&User{Role: ROLE_AGENT}).IsAgent())
	assert.False(t, (&User{Role: ROLE_ADMIN}).IsAgent())
}
