package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of the digest
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/iliyamo/hotel-booking/internal/model"
)

// Verification failure kinds.  Callers collapse all of them into a single
// unauthorized response; the kind only exists for server-side logging.
var (
	ErrTokenMalformed = errors.New("access token malformed")
	ErrTokenSignature = errors.New("access token signature invalid")
	ErrTokenExpired   = errors.New("access token expired")
)

// AccessClaims is the payload of an access token.  The standard `sub`
// claim carries the user ID as a decimal string; `id` repeats it as a
// number for clients that read the token body.
type AccessClaims struct {
	UserID   uint64     `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	HotelID  *uint64    `json:"hotelId"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenCodec issues and verifies HS256 access tokens.  Now is the clock
// used for both issuance and verification; tests replace it.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	Now    func() time.Time
}

// NewTokenCodec returns a codec signing with secret and issuing tokens
// that live for ttl.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl, Now: time.Now}
}

func (c *TokenCodec) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// TTL is the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue builds and signs an access token for u.
func (c *TokenCodec) Issue(u model.User) (AccessToken, error) {
	iat := c.now()
	exp := iat.Add(c.ttl)
	claims := AccessClaims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		HotelID:  u.HotelID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
// The returned error is one of ErrTokenMalformed, ErrTokenSignature or
// ErrTokenExpired, wrapping the parser's error.
func (c *TokenCodec) Verify(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case err == nil && tok.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errors.Join(ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, errors.Join(ErrTokenSignature, err)
	case err == nil:
		return nil, ErrTokenMalformed
	default:
		return nil, errors.Join(ErrTokenMalformed, err)
	}
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Only the hash is persisted, so a leaked table cannot be replayed.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
