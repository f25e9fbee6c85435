package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gardenly/chat-service/pkg/model"
)

// SessionCookie is the cookie the gateway sets at login. Both the websocket
// handshake and the REST surface read the credential from it.
const SessionCookie = "token"

// ErrUnauthenticated covers a missing, malformed, badly signed or expired
// credential.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Claims are self-contained: verifying signature and expiry yields the
// identity without a database round-trip.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Color    string `json:"color"`
	jwt.RegisteredClaims
}

type contextKey string

// IdentityKey carries the verified identity in the request context for REST
// handlers behind the auth middleware.
const IdentityKey contextKey = "identity"

// Verifier checks session tokens against the platform's shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// GenerateToken mints a signed session token for an identity. Login lives in
// the gateway, not here; this exists for tests and the terminal client.
func (v *Verifier) GenerateToken(identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   identity.ID,
		Username: identity.Name,
		Color:    identity.Color,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// VerifyToken validates signature and expiry and returns the identity the
// token carries.
func (v *Verifier) VerifyToken(tokenString string) (*model.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return nil, ErrUnauthenticated
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token carries no user id", ErrUnauthenticated)
	}

	return &model.Identity{ID: claims.UserID, Name: claims.Username, Color: claims.Color}, nil
}

// FromRequest extracts and verifies the credential on a request: the session
// cookie first, then an Authorization bearer header as fallback.
func (v *Verifier) FromRequest(r *http.Request) (*model.Identity, error) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return v.VerifyToken(cookie.Value)
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("%w: no credential presented", ErrUnauthenticated)
	}
	return v.VerifyToken(strings.TrimPrefix(header, "Bearer "))
}
