package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAllows(t *testing.T) {
	tests := []struct {
		role     Role
		required Role
		want     bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleAgent, true},
		{RoleManager, RoleAdmin, false},
		{RoleManager, RoleManager, true},
		{RoleAgent, RoleManager, false},
		{RoleAgent, RoleAgent, true},
		{Role("root"), RoleAgent, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.role)+"/"+string(tc.required), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.role.Allows(tc.required))
		})
	}
	assert.Equal(t, "👑 ผู้ดูแลระบบ", RoleAdmin.DisplayName())
	assert.Equal(t, "root", Role("root").DisplayName())
}

func TestSessionStore(t *testing.T) {
	clock := newClock()
	s := NewSessionStoreWithClock(time.Hour, clock.Now)

	created := s.Create(1, "admin", "Admin", RoleAdmin)
	require.NotEmpty(t, created.Token)
	assert.Equal(t, clock.t.Add(time.Hour), created.ExpiresAt)

	got, ok := s.Get(created.Token)
	require.True(t, ok)
	assert.Equal(t, "admin", got.Username)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	clock.Advance(time.Hour)
	_, ok = s.Get(created.Token)
	assert.False(t, ok, "session expires after the timeout")

	a := s.Create(2, "a", "", RoleAgent)
	s.Create(3, "b", "", RoleAgent)
	s.Delete(a.Token)
	_, ok = s.Get(a.Token)
	assert.False(t, ok)

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, s.Sweep())
}

func TestSessionContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), Session{Username: "x", Role: RoleManager})
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleManager, got.Role)
}
