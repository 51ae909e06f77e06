/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package input

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/middleware"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/juju/errors"
)

type IptConfig struct {
	ServerPort        uint16
	ReadTimeout       int64 // Seconds
	WriteTimeout      int64 // Seconds
	AllowedOrigin     string
	GraphQLPath       string
	SubscriptionsPath string
	AccessLog         io.Writer // Combined log format, nil disables the access log
}

type InputManager struct { // Manages the HTTP input of the chat server
	running atomic.Bool
	paused  atomic.Bool

	logger nlog.Logger
	server *http.Server
	addr   atomic.Pointer[net.TCPAddr]

	stopFromOutsideChan chan struct{}
	doneFromInsideChan  chan struct{}
	stopOnce            sync.Once

	graphqlHandler      http.Handler
	subscriptionHandler http.Handler
	authenticator       auth.Authenticator
	users               service.UserService
}

func NewInputManager() *InputManager {
	return &InputManager{
		running:             atomic.Bool{},
		paused:              atomic.Bool{},
		stopFromOutsideChan: make(chan struct{}),
		doneFromInsideChan:  make(chan struct{}),
	}
}

func (i *InputManager) IsReady() bool {
	return i.logger != nil && i.graphqlHandler != nil && i.subscriptionHandler != nil && i.authenticator != nil && i.users != nil
}

func (i *InputManager) IsRunning() bool {
	return i.running.Load()
}

func (i *InputManager) SetLogger(l nlog.Logger) {
	i.logger = l
}

// SetHandlers sets the handlers of the query endpoint and of the subscription endpoint
func (i *InputManager) SetHandlers(graphqlHandler, subscriptionHandler http.Handler) {
	i.graphqlHandler = graphqlHandler
	i.subscriptionHandler = subscriptionHandler
}

// SetAuthentication sets what resolves the sessions of the query endpoint
func (i *InputManager) SetAuthentication(a auth.Authenticator, users service.UserService) {
	i.authenticator = a
	i.users = users
}

func (i *InputManager) Logf(format string, a ...any) {
	i.logger.Logf(format, a...)
}

func (i *InputManager) SetPause(paused bool) {
	i.paused.Store(paused)
}

func (i *InputManager) IsPaused() bool {
	return i.paused.Load()
}

// Addr returns the address the server listens on, nil before Run binds it
func (i *InputManager) Addr() *net.TCPAddr {
	return i.addr.Load()
}

// PauseMiddleware answers 503 while the manager is paused
func (i *InputManager) PauseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if i.IsPaused() {
			w.Header().Set("Retry-After", "5")
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable) // 503
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler builds the full HTTP stack: recovery, access log, CORS, pause and routing
func (i *InputManager) Handler(cfg *IptConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(i.PauseMiddleware)

	r.Handle(cfg.GraphQLPath, middleware.AuthMiddleware(i.authenticator, i.users, i.logger, i.graphqlHandler)).
		Methods(http.MethodGet, http.MethodPost)
	r.Handle(cfg.SubscriptionsPath, i.subscriptionHandler).Methods(http.MethodGet)

	var h http.Handler = handlers.CORS(
		handlers.AllowedOrigins([]string{cfg.AllowedOrigin}),
		handlers.AllowCredentials(),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
	)(r)

	if cfg.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(cfg.AccessLog, h)
	}
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{i.logger}))(h)
}

func (i *InputManager) Run(ctx context.Context, cfg *IptConfig) error {
	i.Logf("Input service started...")

	if !i.IsReady() {
		close(i.doneFromInsideChan)
		return fmt.Errorf("The Input manager is not ready... Missing components")
	}

	i.server = &http.Server{
		Handler:        i.Handler(cfg),
		ReadTimeout:    time.Duration(cfg.ReadTimeout * int64(time.Second)),
		WriteTimeout:   time.Duration(cfg.WriteTimeout * int64(time.Second)),
		MaxHeaderBytes: 1 << 20,
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ServerPort))
	if err != nil {
		close(i.doneFromInsideChan)
		return errors.Annotatef(err, "listening on port %d", cfg.ServerPort)
	}
	i.addr.Store(listener.Addr().(*net.TCPAddr))

	go func() {
		select {
		case <-ctx.Done():
			i.Logf("Received stop signal. Shutting down...")
		case <-i.stopFromOutsideChan:
			i.Logf("Server was asked to stop. Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := i.server.Shutdown(shutdownCtx); err != nil {
			i.Logf("Error during shutdown... %v", err)
		}
		i.running.Store(false)
		close(i.doneFromInsideChan)
	}()

	i.Logf("Http server started on port {%d}", listener.Addr().(*net.TCPAddr).Port)
	i.running.Store(true)

	if err := i.server.Serve(listener); err != http.ErrServerClosed {
		i.Logf("FATAL: HTTP Server error{%v}", err)
		return err
	}
	<-i.doneFromInsideChan
	return nil
}

// Stop shuts the server down and waits for it. It can be called more than once
func (i *InputManager) Stop() {
	i.stopOnce.Do(func() { close(i.stopFromOutsideChan) })
	<-i.doneFromInsideChan
}

// recoveryLogger reports the panics caught by the recovery handler
type recoveryLogger struct {
	logger nlog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Logf("PANIC: %s", fmt.Sprint(v...))
}
