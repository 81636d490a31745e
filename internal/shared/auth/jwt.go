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

// Claims represents the identity contained in a JWT.
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Exp   int64  `json:"exp,omitempty"`
	Iat   int64  `json:"iat,omitempty"`
}

// DefaultTTL is the lifetime of tokens signed without an explicit expiry.
const DefaultTTL = 24 * time.Hour

var (
	errMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// Tokens signs and verifies HS256 tokens with a fixed secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens returns a signer/verifier for secret. Outside production an empty secret falls
// back to a development value.
func NewTokens(secret, env string) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	env = strings.ToLower(strings.TrimSpace(env))
	if secret == "" {
		if env == "production" || env == "prod" {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", errMissingSecret)
		}
		secret = "dev-secret"
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// Sign signs the given claims with HS256. Missing iat/exp are filled from DefaultTTL.
func (t *Tokens) Sign(claims Claims) (string, error) {
	if claims.Sub == "" {
		return "", errors.New("sub is required")
	}

	now := t.now().UTC().Unix()
	if claims.Iat == 0 {
		claims.Iat = now
	}
	if claims.Exp == 0 {
		claims.Exp = now + int64(DefaultTTL/time.Second)
	}

	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	segments := []string{
		base64.RawURLEncoding.EncodeToString(headerJSON),
		base64.RawURLEncoding.EncodeToString(payloadJSON),
	}
	signingInput := strings.Join(segments, ".")

	segments = append(segments, t.sign(signingInput))
	return strings.Join(segments, "."), nil
}

// Verify verifies a token and returns its claims.
func (t *Tokens) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidToken
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil || header.Alg != "HS256" {
		return Claims{}, ErrInvalidToken
	}

	signingInput := strings.Join(parts[0:2], ".")
	if !hmac.Equal([]byte(parts[2]), []byte(t.sign(signingInput))) {
		return Claims{}, ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}

	if claims.Sub == "" {
		return Claims{}, ErrInvalidToken
	}

	if claims.Exp > 0 && t.now().UTC().Unix() > claims.Exp {
		return Claims{}, ErrExpiredToken
	}

	return claims, nil
}

func (t *Tokens) sign(input string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
