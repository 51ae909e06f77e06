/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/krishna-kudari/chatService/internal"
	"github.com/krishna-kudari/chatService/internal/auth"

	qt "github.com/frankban/quicktest"
)

func freePort(c *qt.C) uint16 {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, qt.IsNil)
	defer l.Close()
	return uint16(l.Addr().(*net.TCPAddr).Port)
}

func testConfig(c *qt.C) *internal.Config {
	cfg := internal.DefaultConfig()
	cfg.HTTPServerPort = freePort(c)
	cfg.DatabaseURL = "file::memory:"
	cfg.DBMaxOpenConns = 1
	cfg.LogFolder = c.TempDir()
	cfg.LogToStderr = false
	cfg.JWTSecret = "test-secret"
	return cfg
}

func TestNewChatNodeRejectsInvalidConfig(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig(c)
	cfg.DBDriver = "oracle"
	_, err := NewChatNode(cfg)
	c.Assert(err, qt.ErrorMatches, `.*db-driver "oracle" not valid`)
}

func TestChatNodeServesGraphQL(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig(c)
	node, err := NewChatNode(cfg)
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for !node.Input().IsRunning() {
		if time.Now().After(deadline) {
			c.Fatal("HTTP input did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	token, err := auth.NewIdentityProvider(auth.ProviderConfig{TokenSecret: cfg.JWTSecret}).IssueToken(&auth.Session{UserID: "u1"}, time.Minute)
	c.Assert(err, qt.IsNil)

	post := func(query string) map[string]any {
		body := fmt.Sprintf(`{"query": %q}`, query)
		req, err := http.NewRequest("POST", fmt.Sprintf("http://127.0.0.1:%d/graphql", cfg.HTTPServerPort), strings.NewReader(body))
		c.Assert(err, qt.IsNil)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := http.DefaultClient.Do(req)
		c.Assert(err, qt.IsNil)
		defer res.Body.Close()
		c.Assert(res.StatusCode, qt.Equals, http.StatusOK)
		var out map[string]any
		c.Assert(json.NewDecoder(res.Body).Decode(&out), qt.IsNil)
		return out
	}

	created := post(`mutation { createConversation(participantIds: ["u1"]) { conversationId } }`)
	c.Assert(created["errors"], qt.IsNil)

	listed := post(`{ conversations { id participants { user { id } } } }`)
	c.Assert(listed["errors"], qt.IsNil)
	conversations := listed["data"].(map[string]any)["conversations"].([]any)
	c.Assert(conversations, qt.HasLen, 1)

	cancel()
	select {
	case err := <-done:
		c.Assert(err, qt.IsNil)
	case <-time.After(15 * time.Second):
		c.Fatal("Node did not stop")
	}
}
