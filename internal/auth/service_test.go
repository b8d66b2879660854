package auth

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	users  map[string]User
	nextID uint
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]User), nextID: 1}
}

func (m *memoryStore) CreateUser(username, passwordHash string) (User, error) {
	user := User{ID: m.nextID, Username: username, PasswordHash: passwordHash}
	m.nextID++
	m.users[username] = user
	return user, nil
}

func (m *memoryStore) FindByUsername(username string) (User, bool, error) {
	user, ok := m.users[username]
	return user, ok, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(newMemoryStore(), "test-secret", log.New(io.Discard, "", 0))
}

func TestRegisterAndVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t)

	user, token, err := svc.Register("alice", "swordfish")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "swordfish", user.PasswordHash)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Register("", "swordfish")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, _, err = svc.Register("alice", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, _, err = svc.Register("alice", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, _, err = svc.Register("alice", "swordfish")
	require.NoError(t, err)
	_, _, err = svc.Register("alice", "different-pw")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.Register("alice", "swordfish")
	require.NoError(t, err)

	user, token, err := svc.Login("alice", "swordfish")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	_, _, err = svc.Login("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody", "swordfish")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("alice", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc := newTestService(t)
	_, token, err := svc.Register("alice", "swordfish")
	require.NoError(t, err)

	_, err = svc.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A token signed under a different secret must not validate.
	other := NewService(newMemoryStore(), "other-secret", log.New(io.Discard, "", 0))
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Flipping a character in the signature invalidates it.
	tampered := token[:len(token)-2] + "xx"
	_, err = svc.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t)
	user, _, err := svc.Register("alice", "swordfish")
	require.NoError(t, err)

	// Issue a token whose lifetime already ran out.
	svc.now = func() time.Time { return time.Now().Add(-tokenTTL - time.Hour) }
	stale, err := svc.issueToken(user)
	require.NoError(t, err)

	_, err = svc.Verify(stale)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
