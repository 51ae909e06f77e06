/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/juju/errors"
)

// Name of the cookie session shared with the identity provider
const CookieSessionName = "auth-session"

// Keys of the websocket connection_init payload that may carry the credential
var connectionParamKeys = []string{"session", "authToken", "token", "Authorization", "authorization"}

// Authenticator resolves credentials into sessions. A nil session with a nil error means "no credential"
type Authenticator interface {
	FromRequest(r *http.Request) (*Session, error)                // Bearer token first, then the cookie session
	FromConnectionParams(params map[string]any) (*Session, error) // Token found in the websocket connection_init payload
}

// Claims are the JWT claims the identity provider signs
type Claims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// IdentityProvider verifies the credentials issued by the external identity provider:
// HS256 bearer tokens and cookie sessions signed with a shared secret
type IdentityProvider struct {
	tokenSecret []byte
	issuer      string
	cookies     *sessions.CookieStore
}

type ProviderConfig struct {
	TokenSecret   string // HMAC secret of the bearer tokens
	Issuer        string // Expected "iss" claim, empty accepts any
	SessionSecret string // Secret of the cookie store, empty disables cookie sessions
	SecureCookies bool
}

func NewIdentityProvider(cfg ProviderConfig) *IdentityProvider {
	p := &IdentityProvider{
		tokenSecret: []byte(cfg.TokenSecret),
		issuer:      cfg.Issuer,
	}
	if cfg.SessionSecret != "" {
		p.cookies = sessions.NewCookieStore([]byte(cfg.SessionSecret))
		p.cookies.Options = &sessions.Options{
			Path:     "/",
			HttpOnly: true,
			Secure:   cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(7 * 24 * time.Hour.Seconds()),
		}
	}
	return p
}

// CookieStore exposes the cookie store, nil when cookie sessions are disabled
func (p *IdentityProvider) CookieStore() *sessions.CookieStore {
	return p.cookies
}

func (p *IdentityProvider) FromRequest(r *http.Request) (*Session, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return p.ParseToken(header)
	}
	if p.cookies == nil {
		return nil, nil
	}
	if _, err := r.Cookie(CookieSessionName); err != nil {
		return nil, nil
	}

	session, err := p.cookies.Get(r, CookieSessionName)
	if err != nil {
		return nil, errors.Annotate(err, "decoding cookie session")
	}
	userID, _ := session.Values["user_id"].(string)
	if userID == "" {
		return nil, nil
	}
	username, _ := session.Values["username"].(string)
	email, _ := session.Values["email"].(string)
	return &Session{UserID: userID, Username: username, Email: email}, nil
}

func (p *IdentityProvider) FromConnectionParams(params map[string]any) (*Session, error) {
	for _, key := range connectionParamKeys {
		switch v := params[key].(type) {
		case string:
			if v != "" {
				return p.ParseToken(v)
			}
		case map[string]any:
			// {"session": {"token": "..."}}
			if token, ok := v["token"].(string); ok && token != "" {
				return p.ParseToken(token)
			}
		}
	}
	return nil, nil
}

// ParseToken verifies a bearer token, with or without its "Bearer " prefix
func (p *IdentityProvider) ParseToken(raw string) (*Session, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if len(p.tokenSecret) == 0 {
		return nil, errors.NotValidf("bearer token without a configured secret")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return p.tokenSecret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "verifying bearer token")
	}
	if claims.Subject == "" {
		return nil, errors.NotValidf("token without subject")
	}

	return &Session{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Name:     claims.Name,
		Image:    claims.Picture,
	}, nil
}

// IssueToken signs a token for s valid for ttl. The identity provider does this in production,
// the server only uses it for local tooling and tests
func (p *IdentityProvider) IssueToken(s *Session, ttl time.Duration) (string, error) {
	if len(p.tokenSecret) == 0 {
		return "", fmt.Errorf("No token secret configured")
	}
	now := time.Now()
	claims := Claims{
		Username: s.Username,
		Email:    s.Email,
		Name:     s.Name,
		Picture:  s.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.tokenSecret)
}
