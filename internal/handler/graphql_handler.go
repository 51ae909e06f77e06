/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"net/http"

	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/view"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
)

type playgroundData struct {
	Title                string
	Endpoint             string
	SubscriptionEndpoint string
}

// GraphQLHandler serves queries and mutations on POST, and the playground on GET when one is given
type GraphQLHandler struct {
	query    http.Handler
	renderer *view.PageRenderer
	page     playgroundData
	logger   nlog.Logger
}

// NewGraphQLHandler creates the handler of the query endpoint. A nil renderer disables the playground
func NewGraphQLHandler(schema *graphql.Schema, renderer *view.PageRenderer, endpoint, subscriptionEndpoint string, logger nlog.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		query:    &relay.Handler{Schema: schema},
		renderer: renderer,
		page: playgroundData{
			Title:                "Chat API",
			Endpoint:             endpoint,
			SubscriptionEndpoint: subscriptionEndpoint,
		},
		logger: logger,
	}
}

func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost:
		h.query.ServeHTTP(w, r)

	case r.Method == http.MethodGet && h.renderer != nil:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.renderer.RenderTemplate(w, view.PlaygroundPage, h.page); err != nil {
			h.logger.Logf("Could not render the playground: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError) // 500
		}

	default:
		w.Header().Set("Allow", allowedMethods(h.renderer != nil))
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed) // 405
	}
}

func allowedMethods(playground bool) string {
	if playground {
		return "GET, POST"
	}
	return "POST"
}
