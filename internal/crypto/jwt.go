package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformedToken       = errors.New("malformed token")
	ErrExpiredToken         = errors.New("token expired")
	ErrEmptySecret          = errors.New("token secret must not be empty")
	ErrUnsupportedAlgorithm = errors.New("unsupported token signing algorithm")
)

// Claims is the session claim set carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// TokenConfig is the immutable signing configuration of a TokenCodec.
type TokenConfig struct {
	Secret    string
	Algorithm string
	Issuer    string
}

// TokenCodec issues and verifies HMAC-signed session tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
	now    func() time.Time
}

// NewTokenCodec validates cfg and returns a codec. Only HMAC algorithms
// (HS256, HS384, HS512) are accepted.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}

	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, ErrUnsupportedAlgorithm
	}

	return &TokenCodec{
		secret: []byte(cfg.Secret),
		method: method,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// Algorithm returns the configured signing algorithm name.
func (c *TokenCodec) Algorithm() string {
	return c.method.Alg()
}

// Issue signs a token for the user that expires ttl from now.
func (c *TokenCodec) Issue(userID int64, email string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Verify checks the signature and expiry of tokenString and returns its
// claims. A token whose signature is valid but whose expiry has passed
// yields ErrExpiredToken; every other failure yields ErrMalformedToken.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}

	return claims, nil
}
