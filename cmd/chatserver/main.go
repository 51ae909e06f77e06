/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krishna-kudari/chatService/internal"
	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path of the .cfg file, or of the folder holding it")
	tokenFor := flag.String("issue-token", "", "Print a bearer token for the given user id and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Validity of the token printed by -issue-token")
	flag.Parse()

	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not load the configuration: %v\n", err)
		os.Exit(1)
	}

	if *tokenFor != "" {
		provider := auth.NewIdentityProvider(auth.ProviderConfig{TokenSecret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
		token, err := provider.IssueToken(&auth.Session{UserID: *tokenFor}, *tokenTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not issue a token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	node, err := server.NewChatNode(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not create the node: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := node.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Node stopped: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Shutting off...\n")
}
