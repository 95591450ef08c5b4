package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   string
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), "user-42"),
			userId:   "user-42",
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %q", tc.userId)
		})
	}
}

func TestJwtRoundTrip(t *testing.T) {
	app := &MeetSpaceApp{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession("user-42", defaultJwtExpiration)
	assert.NoError(t, err, "expected token to be created")

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected token to verify")
	assert.Equal(t, "user-42", userId, "unexpected user id claim")
}

func TestExtractUserIdFromToken_WrongKey(t *testing.T) {
	app := &MeetSpaceApp{signingKey: []byte("test-signing-key")}
	other := &MeetSpaceApp{signingKey: []byte("other-key")}

	token, err := app.createJwtForSession("user-42", defaultJwtExpiration)
	assert.NoError(t, err, "expected token to be created")

	_, err = other.extractUserIdFromToken(token)
	assert.Error(t, err, "expected verification to fail with wrong key")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("password")
	assert.NoError(t, err, "expected password to hash")

	assert.True(t, verifyPassword(hash, "password"), "expected matching password to verify")
	assert.False(t, verifyPassword(hash, "wrong"), "expected wrong password to fail")
}
