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
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krishna-kudari/chatService/internal"
	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/data"
	"github.com/krishna-kudari/chatService/internal/eventbus"
	"github.com/krishna-kudari/chatService/internal/graph"
	"github.com/krishna-kudari/chatService/internal/handler"
	"github.com/krishna-kudari/chatService/internal/health"
	"github.com/krishna-kudari/chatService/internal/input"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/relay"
	"github.com/krishna-kudari/chatService/internal/service"
	"github.com/krishna-kudari/chatService/internal/view"

	"github.com/juju/errors"
)

// Subsystems of the server logger, one file each
var subsystems = []string{"main", "http", "graphql", "ws", "storage", "bus", "relay", "health", "access"}

// ChatNode holds the components of a chat server instance together
type ChatNode struct {
	running atomic.Bool      // Is Run in progress?
	config  *internal.Config // Config struct

	logger  *nlog.ServerLogger // Logger component
	loggers map[string]nlog.Logger
	access  io.Writer // Access log writer

	storageMan *data.StorageManager // Storage manager
	bus        *eventbus.Bus        // Local event bus
	relay      relay.Relay          // Cross instance relay, nil when running alone

	inputMan      *input.InputManager          // Input manager
	subscriptions *handler.SubscriptionHandler // Websocket transport, shut down explicitly since its connections are hijacked
	healthSvc     *health.HealthService        // gRPC health service, nil when disabled
}

// NewChatNode builds every component described by cfg.
// It returns a pointer to the node if no problems arise. Otherwise, the pointer is nil and an appropriate error is returned
func NewChatNode(cfg *internal.Config) (*ChatNode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	logger, err := nlog.NewServerLogger(nlog.LogConfig{
		Folder:     cfg.LogFolder,
		Enabled:    cfg.EnableLogging,
		Stderr:     cfg.LogToStderr,
		MaxSizeMB:  50,
		MaxBackups: 5,
		Compress:   true,
	})
	if err != nil {
		return nil, errors.Annotate(err, "creating the logger")
	}
	n := &ChatNode{
		config:  cfg,
		logger:  logger,
		loggers: make(map[string]nlog.Logger),
	}
	for _, name := range subsystems {
		l, err := logger.RegisterSubsystem(name)
		if err != nil {
			logger.CloseAll()
			return nil, errors.Annotatef(err, "registering subsystem %s", name)
		}
		n.loggers[name] = l
	}
	if n.access, err = logger.Writer("access"); err != nil {
		logger.CloseAll()
		return nil, errors.Trace(err)
	}

	if err := n.assemble(); err != nil {
		n.release()
		logger.CloseAll()
		return nil, err
	}
	n.logf("main", "Node is all set: port {%d}, store {%s}, relay {%s}", cfg.HTTPServerPort, cfg.DBDriver, relayName(cfg.RelayDriver))
	return n, nil
}

// assemble creates storage, bus, relay, services and transports
func (n *ChatNode) assemble() error {
	cfg := n.config

	db, err := data.OpenDatabase(data.StorageConfig{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		SlowQuery:    time.Duration(cfg.SlowQueryMillis) * time.Millisecond,
	}, n.loggers["storage"])
	if err != nil {
		return errors.Annotate(err, "opening the database")
	}
	n.storageMan = data.NewStorageManager(db)

	n.bus = eventbus.NewBus(cfg.EventBuffer, n.loggers["bus"])
	switch cfg.RelayDriver {
	case internal.RelayNATS:
		n.relay, err = relay.NewNATSRelay(cfg.NATSURL, cfg.NATSSubject, n.loggers["relay"])
	case internal.RelayZMQ:
		n.relay, err = relay.NewZMQRelay(cfg.ZMQBind, cfg.ZMQPeers, n.loggers["relay"])
	}
	if err != nil {
		return errors.Annotate(err, "starting the relay")
	}
	if n.relay != nil {
		n.bus.SetForwarder(n.relay)
	}

	serviceLogger := n.loggers["graphql"]
	conversations := service.NewConversationService(n.storageMan.GetConversationRepository(), serviceLogger)
	messages := service.NewMessageService(n.storageMan.GetMessageRepository(), n.storageMan.GetConversationRepository(), serviceLogger)
	users := service.NewUserService(n.storageMan.GetUserRepository(), serviceLogger)

	identity := auth.NewIdentityProvider(auth.ProviderConfig{
		TokenSecret:   cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.SecureCookies,
	})

	schema, err := graph.NewSchema(conversations, messages, users, n.bus, n.loggers["graphql"])
	if err != nil {
		return errors.Trace(err)
	}

	var renderer *view.PageRenderer
	if cfg.Playground {
		if renderer, err = view.NewEmbeddedRenderer(); err != nil {
			return errors.Trace(err)
		}
	}

	n.subscriptions = handler.NewSubscriptionHandler(schema, identity, users, handler.SubscriptionConfig{
		AllowedOrigin: cfg.ClientOrigin,
	}, n.loggers["ws"])

	n.inputMan = input.NewInputManager()
	n.inputMan.SetLogger(n.loggers["http"])
	n.inputMan.SetHandlers(
		handler.NewGraphQLHandler(schema, renderer, cfg.GraphQLPath, cfg.SubscriptionsPath, n.loggers["http"]),
		n.subscriptions,
	)
	n.inputMan.SetAuthentication(identity, users)

	if cfg.HealthPort != 0 {
		n.healthSvc = health.NewHealthService(n.storageMan, 5*time.Second, n.loggers["health"])
	}
	return nil
}

// logf logs the given string on a subsystem. Wrap around logger.Logf
func (n *ChatNode) logf(subsystem, format string, a ...any) {
	n.logger.Logf(subsystem, format, a...)
}

// EnableLogging enables the logger, making it so it writes to files again
func (n *ChatNode) EnableLogging() {
	n.logger.EnableLogging()
}

// DisableLogging disables the logger, making it so it doesn't write to files
func (n *ChatNode) DisableLogging() {
	n.logger.DisableLogging()
}

// Input exposes the input manager, to pause the HTTP input or read its address
func (n *ChatNode) Input() *input.InputManager {
	return n.inputMan
}

// Run starts every component and blocks until ctx is done or one of them fails.
// Components are stopped in reverse order: HTTP input and websockets, relay, health, storage and finally the logger
func (n *ChatNode) Run(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return fmt.Errorf("Node is already running")
	}

	logCtx, stopLogger := context.WithCancel(context.Background())
	loggerDone := make(chan struct{})
	go func() {
		defer close(loggerDone)
		n.logger.Run(logCtx)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	launch := func(name string, run func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(); err != nil {
				n.logf("main", "%s stopped with error: %v", name, err)
				errs <- errors.Annotatef(err, "%s", name)
				cancel()
			}
		}()
	}

	n.logf("main", "Node booting up...")
	launch("http", func() error {
		return n.inputMan.Run(ctx, &input.IptConfig{
			ServerPort:        n.config.HTTPServerPort,
			ReadTimeout:       n.config.ReadTimeout,
			WriteTimeout:      n.config.WriteTimeout,
			AllowedOrigin:     n.config.ClientOrigin,
			GraphQLPath:       n.config.GraphQLPath,
			SubscriptionsPath: n.config.SubscriptionsPath,
			AccessLog:         n.access,
		})
	})
	if n.relay != nil {
		launch("relay", func() error { return n.relay.Run(ctx, n.bus) })
	}
	if n.healthSvc != nil {
		launch("health", func() error { return n.healthSvc.Run(ctx, n.config.HealthPort) })
	}

	<-ctx.Done()
	n.logf("main", "Shutting off...")
	n.subscriptions.Shutdown()
	wg.Wait()
	n.release()

	stopLogger()
	<-loggerDone
	n.running.Store(false)

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

// release closes relay and storage
func (n *ChatNode) release() {
	if n.relay != nil {
		n.bus.SetForwarder(nil)
		if err := n.relay.Close(); err != nil {
			n.logf("relay", "Error while closing: %v", err)
		}
	}
	if n.storageMan != nil {
		if err := n.storageMan.Close(); err != nil {
			n.logf("storage", "Error while closing: %v", err)
		}
	}
}

func relayName(driver string) string {
	if driver == internal.RelayNone {
		return "none"
	}
	return driver
}
