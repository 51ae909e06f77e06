/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package health

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/krishna-kudari/chatService/internal/nlog"

	"github.com/juju/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Name under which the chat API reports its status, "" reports the whole server
const ServiceName = "chat.GraphQL"

// Pinger is something whose availability decides the health of the server
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService exposes the standard gRPC health protocol, serving while the store answers pings
type HealthService struct {
	pinger   Pinger
	interval time.Duration
	logger   nlog.Logger

	server *grpc.Server
	health *health.Server

	lock    sync.Mutex
	serving bool
}

func NewHealthService(pinger Pinger, interval time.Duration, logger nlog.Logger) *HealthService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	h := &HealthService{
		pinger:   pinger,
		interval: interval,
		logger:   logger,
		server:   grpc.NewServer(),
		health:   health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *HealthService) Logf(format string, v ...any) {
	h.logger.Logf(format, v...)
}

// Run listens on port and serves until ctx is done
func (h *HealthService) Run(ctx context.Context, port uint16) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.Annotatef(err, "listening on port %d", port)
	}
	h.Logf("Health service listening on port {%d}", port)
	return h.Serve(ctx, lis)
}

// Serve serves on lis, probing the pinger every interval, until ctx is done
func (h *HealthService) Serve(ctx context.Context, lis net.Listener) error {
	h.Check(ctx)

	served := make(chan error, 1)
	go func() { served <- h.server.Serve(lis) }()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			h.server.GracefulStop()
			<-served
			return nil
		case err := <-served:
			return errors.Annotate(err, "serving health checks")
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Check pings once and publishes the resulting status
func (h *HealthService) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	err := h.pinger.Ping(pingCtx)
	serving := err == nil

	h.lock.Lock()
	changed := serving != h.serving
	h.serving = serving
	h.lock.Unlock()

	if changed {
		if serving {
			h.Logf("Store reachable, serving")
		} else {
			h.Logf("Store unreachable, not serving: %v", err)
		}
	}
	if serving {
		h.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return serving
}

func (h *HealthService) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}
