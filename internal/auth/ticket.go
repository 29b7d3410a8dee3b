package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxTicketLifetime bounds expires_at - issued_at.
const MaxTicketLifetime = time.Hour

// ErrInvalidTicket covers every verification failure. Callers match
// with errors.Is; the wrapped detail is for logs only.
var ErrInvalidTicket = errors.New("invalid ticket")

// Ticket is the signed payload binding a user to a room. JSON field
// order is alphabetical so the signed bytes are canonical.
type Ticket struct {
	ExpiresAt int64  `json:"expires_at"`
	IssuedAt  int64  `json:"issued_at"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

// Signer issues and verifies game tickets with a shared HMAC secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign encodes the ticket as base64url(payload) "." base64url(mac).
func (s *Signer) Sign(t Ticket) (string, error) {
	if t.ExpiresAt <= t.IssuedAt {
		return "", fmt.Errorf("ticket expires before issue")
	}
	if t.ExpiresAt-t.IssuedAt > int64(MaxTicketLifetime/time.Second) {
		return "", fmt.Errorf("ticket lifetime exceeds %s", MaxTicketLifetime)
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal ticket: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString(s.mac(payload)), nil
}

// Issue builds and signs a ticket for user in room, valid for ttl.
func (s *Signer) Issue(userID, username, roomID string, ttl time.Duration) (string, error) {
	now := s.now().Unix()
	return s.Sign(Ticket{
		ExpiresAt: now + int64(ttl/time.Second),
		IssuedAt:  now,
		RoomID:    roomID,
		UserID:    userID,
		Username:  username,
	})
}

// Verify checks signature, expiry and room binding. Every failure is
// ErrInvalidTicket so callers cannot distinguish tampering from expiry.
func (s *Signer) Verify(token, roomID string) (*Ticket, error) {
	payloadPart, macPart, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing separator", ErrInvalidTicket)
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, fmt.Errorf("%w: bad payload encoding", ErrInvalidTicket)
	}
	mac, err := base64.RawURLEncoding.DecodeString(macPart)
	if err != nil {
		return nil, fmt.Errorf("%w: bad mac encoding", ErrInvalidTicket)
	}
	if !hmac.Equal(mac, s.mac(payload)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidTicket)
	}
	var t Ticket
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("%w: bad payload", ErrInvalidTicket)
	}
	if t.ExpiresAt-t.IssuedAt > int64(MaxTicketLifetime/time.Second) {
		return nil, fmt.Errorf("%w: lifetime too long", ErrInvalidTicket)
	}
	if s.now().Unix() >= t.ExpiresAt {
		return nil, fmt.Errorf("%w: expired", ErrInvalidTicket)
	}
	if t.RoomID != roomID {
		return nil, fmt.Errorf("%w: room mismatch", ErrInvalidTicket)
	}
	return &t, nil
}

func (s *Signer) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil)
}
