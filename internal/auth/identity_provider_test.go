/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func newProvider() *IdentityProvider {
	return NewIdentityProvider(ProviderConfig{
		TokenSecret:   "token-secret",
		Issuer:        "chat-idp",
		SessionSecret: "0123456789abcdef0123456789abcdef",
	})
}

func TestBearerTokenRoundTrip(t *testing.T) {
	c := qt.New(t)
	p := newProvider()

	token, err := p.IssueToken(&Session{UserID: "u1", Username: "alice", Email: "alice@example.com"}, time.Hour)
	c.Assert(err, qt.IsNil)

	r := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	s, err := p.FromRequest(r)
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.DeepEquals, &Session{UserID: "u1", Username: "alice", Email: "alice@example.com"})
}

func TestRejectsForeignTokens(t *testing.T) {
	c := qt.New(t)
	p := newProvider()

	other := NewIdentityProvider(ProviderConfig{TokenSecret: "another-secret", Issuer: "chat-idp"})
	forged, err := other.IssueToken(&Session{UserID: "u1"}, time.Hour)
	c.Assert(err, qt.IsNil)
	_, err = p.ParseToken(forged)
	c.Assert(err, qt.Not(qt.IsNil))

	wrongIssuer := NewIdentityProvider(ProviderConfig{TokenSecret: "token-secret", Issuer: "somebody-else"})
	token, _ := wrongIssuer.IssueToken(&Session{UserID: "u1"}, time.Hour)
	_, err = p.ParseToken(token)
	c.Assert(err, qt.Not(qt.IsNil))

	expired, _ := p.IssueToken(&Session{UserID: "u1"}, -time.Minute)
	_, err = p.ParseToken(expired)
	c.Assert(err, qt.Not(qt.IsNil))

	noSubject, _ := p.IssueToken(&Session{}, time.Hour)
	_, err = p.ParseToken(noSubject)
	c.Assert(err, qt.ErrorMatches, ".*token without subject.*")
}

func TestNoCredentialMeansNoSession(t *testing.T) {
	c := qt.New(t)
	p := newProvider()

	s, err := p.FromRequest(httptest.NewRequest(http.MethodPost, "/graphql", nil))
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.IsNil)

	s, err = p.FromConnectionParams(map[string]any{"unrelated": true})
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.IsNil)
}

func TestCookieSession(t *testing.T) {
	c := qt.New(t)
	p := newProvider()

	// Let the store encode a cookie the way the identity provider would
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	session, err := p.CookieStore().Get(r, CookieSessionName)
	c.Assert(err, qt.IsNil)
	session.Values["user_id"] = "u2"
	session.Values["username"] = "bob"
	c.Assert(session.Save(r, w), qt.IsNil)

	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	for _, cookie := range w.Result().Cookies() {
		req.AddCookie(cookie)
	}
	s, err := p.FromRequest(req)
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.DeepEquals, &Session{UserID: "u2", Username: "bob"})
}

func TestConnectionParams(t *testing.T) {
	c := qt.New(t)
	p := newProvider()
	token, _ := p.IssueToken(&Session{UserID: "u3"}, time.Hour)

	for _, params := range []map[string]any{
		{"session": token},
		{"authToken": token},
		{"Authorization": "Bearer " + token},
		{"session": map[string]any{"token": token}},
	} {
		s, err := p.FromConnectionParams(params)
		c.Assert(err, qt.IsNil)
		c.Assert(s.UserID, qt.Equals, "u3")
	}
}

func TestSessionContext(t *testing.T) {
	c := qt.New(t)
	c.Assert(SessionFromContext(context.Background()), qt.IsNil)

	ctx := WithSession(context.Background(), &Session{UserID: "u1"})
	c.Assert(SessionFromContext(ctx).UserID, qt.Equals, "u1")
	c.Assert(SessionFromContext(WithSession(ctx, nil)), qt.IsNil)
}
