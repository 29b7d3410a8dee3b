package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T, at time.Time) *Signer {
	t.Helper()
	s := NewSigner([]byte("test-secret"))
	s.now = func() time.Time { return at }
	return s
}

func TestSignVerifyRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := testSigner(t, now)

	token, err := s.Issue("u1", "alice", "room-1", 30*time.Minute)
	require.NoError(t, err)

	ticket, err := s.Verify(token, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", ticket.UserID)
	assert.Equal(t, "alice", ticket.Username)
	assert.Equal(t, now.Unix(), ticket.IssuedAt)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := testSigner(t, now)
	token, err := s.Issue("u1", "alice", "room-1", time.Minute)
	require.NoError(t, err)

	payloadPart, macPart, _ := strings.Cut(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	require.NoError(t, err)
	forged := strings.Replace(string(payload), "alice", "mallory", 1)
	token = base64.RawURLEncoding.EncodeToString([]byte(forged)) + "." + macPart

	_, err = s.Verify(token, "room-1")
	require.ErrorIs(t, err, ErrInvalidTicket)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := testSigner(t, now)
	token, err := s.Issue("u1", "alice", "room-1", time.Minute)
	require.NoError(t, err)

	other := NewSigner([]byte("other-secret"))
	other.now = s.now
	_, err = other.Verify(token, "room-1")
	require.ErrorIs(t, err, ErrInvalidTicket)
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := testSigner(t, now)
	token, err := s.Issue("u1", "alice", "room-1", time.Minute)
	require.NoError(t, err)

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = s.Verify(token, "room-1")
	require.ErrorIs(t, err, ErrInvalidTicket)
}

func TestVerifyRejectsRoomMismatch(t *testing.T) {
	s := testSigner(t, time.Unix(1_700_000_000, 0))
	token, err := s.Issue("u1", "alice", "room-1", time.Minute)
	require.NoError(t, err)

	_, err = s.Verify(token, "room-2")
	require.ErrorIs(t, err, ErrInvalidTicket)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	s := testSigner(t, time.Unix(1_700_000_000, 0))
	for _, token := range []string{"", "nodot", "a.b", "!!!.???"} {
		_, err := s.Verify(token, "room-1")
		assert.ErrorIs(t, err, ErrInvalidTicket, "token %q", token)
	}
}

func TestSignRejectsLongLifetime(t *testing.T) {
	s := testSigner(t, time.Unix(1_700_000_000, 0))
	_, err := s.Issue("u1", "alice", "room-1", 2*time.Hour)
	require.Error(t, err)
}

func TestSignedPayloadKeysSorted(t *testing.T) {
	s := testSigner(t, time.Unix(1_700_000_000, 0))
	token, err := s.Issue("u1", "alice", "room-1", time.Minute)
	require.NoError(t, err)

	payloadPart, _, _ := strings.Cut(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	require.NoError(t, err)

	keys := []string{"expires_at", "issued_at", "room_id", "user_id", "username"}
	last := -1
	for _, k := range keys {
		idx := strings.Index(string(payload), `"`+k+`"`)
		require.Greater(t, idx, last, "key %s out of order", k)
		last = idx
	}
}
