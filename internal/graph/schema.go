/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package graph

import (
	_ "embed"

	"github.com/krishna-kudari/chatService/internal/eventbus"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/service"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/juju/errors"
)

//go:embed schema.graphql
var schemaSDL string

// SchemaSDL returns the schema served by the API
func SchemaSDL() string {
	return schemaSDL
}

// NewSchema parses the chat schema and binds it to a resolver built on the given services
func NewSchema(
	conversations service.ConversationService,
	messages service.MessageService,
	users service.UserService,
	bus *eventbus.Bus,
	logger nlog.Logger,
) (*graphql.Schema, error) {
	if logger == nil {
		logger = nlog.Discard
	}
	resolver := &Resolver{
		conversations: conversations,
		messages:      messages,
		users:         users,
		bus:           bus,
		logger:        logger,
	}

	schema, err := graphql.ParseSchema(schemaSDL, resolver,
		graphql.UseStringDescriptions(),
		graphql.MaxDepth(12),
		graphql.Logger(panicLogger{logger}),
	)
	if err != nil {
		return nil, errors.Annotate(err, "parsing the chat schema")
	}
	return schema, nil
}
