package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("S3cure!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "S3cure!pass", hash)
	assert.True(t, CheckPassword(hash, "S3cure!pass"))
	assert.False(t, CheckPassword(hash, "s3cure!pass"))
	assert.False(t, CheckPassword("not-a-hash", "S3cure!pass"))

	other, err := HashPassword("S3cure!pass")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes are salted")
}

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		score    int
		level    string
		strong   bool
	}{
		{password: "", score: 0, level: "อ่อนแอ"},
		{password: "abc", score: 1, level: "อ่อนแอ"},
		{password: "abcdefgh", score: 2, level: "อ่อนแอ"},
		{password: "abcdefgh1", score: 3, level: "ปานกลาง"},
		{password: "Abcdefgh1", score: 4, level: "ดี", strong: true},
		{password: "Abcdefgh1!", score: 5, level: "แข็งแกร่งมาก", strong: true},
	}
	for _, tc := range tests {
		t.Run(tc.password, func(t *testing.T) {
			s := PasswordStrength(tc.password)
			assert.Equal(t, tc.score, s.Score)
			assert.Equal(t, tc.level, s.Level)
			assert.Equal(t, tc.strong, s.IsStrong)
			assert.Len(t, s.Feedback, 5-tc.score)
		})
	}
}
