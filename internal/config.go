/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package internal

import (
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
)

const (
	RelayNone = ""
	RelayNATS = "nats"
	RelayZMQ  = "zmq"
)

type Config struct {
	HTTPServerPort    uint16   `json:"http-server-port"`
	ReadTimeout       int64    `json:"read-timeout"`  // Seconds
	WriteTimeout      int64    `json:"write-timeout"` // Seconds
	ClientOrigin      string   `json:"client-origin"`
	GraphQLPath       string   `json:"graphql-path"`
	SubscriptionsPath string   `json:"subscriptions-path"`
	Playground        bool     `json:"playground"`
	DBDriver          string   `json:"db-driver"`
	DatabaseURL       string   `json:"database-url"`
	DBMaxOpenConns    int      `json:"db-max-open-conns"`
	SlowQueryMillis   int64    `json:"slow-query-ms"`
	SessionSecret     string   `json:"session-secret"`
	SecureCookies     bool     `json:"secure-cookies"`
	JWTSecret         string   `json:"auth-jwt-secret"`
	JWTIssuer         string   `json:"auth-jwt-issuer"`
	HealthPort        uint16   `json:"health-port"` // 0 disables the gRPC health service
	RelayDriver       string   `json:"relay-driver"`
	NATSURL           string   `json:"nats-url"`
	NATSSubject       string   `json:"nats-subject"`
	ZMQBind           string   `json:"zmq-bind"`
	ZMQPeers          []string `json:"zmq-peers"`
	EventBuffer       int      `json:"event-buffer"`
	EnableLogging     bool     `json:"enable-logging"`
	LogFolder         string   `json:"log-folder"`
	LogToStderr       bool     `json:"log-to-stderr"`
}

// DefaultConfig returns the configuration used when nothing else is given
func DefaultConfig() *Config {
	return &Config{
		HTTPServerPort:    4000,
		ReadTimeout:       15,
		ClientOrigin:      "http://localhost:3000",
		GraphQLPath:       "/graphql",
		SubscriptionsPath: "/graphql/subscriptions",
		DBDriver:          "sqlite",
		DatabaseURL:       "chat.db",
		DBMaxOpenConns:    10,
		SlowQueryMillis:   200,
		NATSSubject:       "chat.events",
		EventBuffer:       64,
		EnableLogging:     true,
		LogFolder:         "logs",
		LogToStderr:       true,
	}
}

// LoadConfig builds the configuration in three layers: defaults, the JSON file at path, then the environment.
// path may be a .cfg file or the folder holding it, an empty path skips the file.
// Variables defined in a .env file in the working directory are added to the environment first.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, ".cfg")
		}
		file, err := os.OpenFile(path, os.O_RDONLY, 0755)
		if err != nil {
			return nil, errors.Annotatef(err, "opening config file %s", path)
		}
		defer file.Close()

		payload, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.Annotatef(err, "reading config file %s", path)
		}
		if err = json.Unmarshal(payload, config); err != nil {
			return nil, errors.Annotatef(err, "decoding config file %s", path)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Annotate(err, "loading .env")
	}
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, errors.Trace(err)
	}
	return config, nil
}

// applyEnv overrides the fields whose variable is set
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	port := func(key string, dst *uint16) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 16)
		if err != nil {
			return errors.NotValidf("%s=%q", key, v)
		}
		*dst = uint16(n)
		return nil
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.NotValidf("%s=%q", key, v)
		}
		*dst = b
		return nil
	}

	str("CLIENT_ORIGIN", &c.ClientOrigin)
	str("DB_DRIVER", &c.DBDriver)
	str("DATABASE_URL", &c.DatabaseURL)
	str("SESSION_SECRET", &c.SessionSecret)
	str("AUTH_JWT_SECRET", &c.JWTSecret)
	str("AUTH_JWT_ISSUER", &c.JWTIssuer)
	str("RELAY_DRIVER", &c.RelayDriver)
	str("NATS_URL", &c.NATSURL)
	str("NATS_SUBJECT", &c.NATSSubject)
	str("ZMQ_BIND", &c.ZMQBind)
	str("LOG_FOLDER", &c.LogFolder)
	if v, ok := lookup("ZMQ_PEERS"); ok {
		c.ZMQPeers = nil
		for _, peer := range strings.Split(v, ",") {
			if peer = strings.TrimSpace(peer); peer != "" {
				c.ZMQPeers = append(c.ZMQPeers, peer)
			}
		}
	}

	for _, err := range []error{
		port("PORT", &c.HTTPServerPort),
		port("HEALTH_PORT", &c.HealthPort),
		flag("ENABLE_LOGGING", &c.EnableLogging),
		flag("LOG_TO_STDERR", &c.LogToStderr),
		flag("PLAYGROUND", &c.Playground),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate reports the first inconsistent setting
func (c *Config) Validate() error {
	switch {
	case c.HTTPServerPort == 0:
		return errors.NotValidf("http-server-port 0")
	case c.ClientOrigin == "":
		return errors.NotValidf("empty client-origin")
	case !strings.HasPrefix(c.GraphQLPath, "/"):
		return errors.NotValidf("graphql-path %q", c.GraphQLPath)
	case !strings.HasPrefix(c.SubscriptionsPath, "/"):
		return errors.NotValidf("subscriptions-path %q", c.SubscriptionsPath)
	case c.GraphQLPath == c.SubscriptionsPath:
		return errors.NotValidf("subscriptions-path equal to graphql-path")
	case c.DatabaseURL == "":
		return errors.NotValidf("empty database-url")
	case c.HealthPort != 0 && c.HealthPort == c.HTTPServerPort:
		return errors.NotValidf("health-port equal to http-server-port")
	}

	switch c.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return errors.NotValidf("db-driver %q", c.DBDriver)
	}

	switch c.RelayDriver {
	case RelayNone:
	case RelayNATS:
		if c.NATSURL == "" || c.NATSSubject == "" {
			return errors.NotValidf("nats relay without nats-url or nats-subject")
		}
	case RelayZMQ:
		if c.ZMQBind == "" {
			return errors.NotValidf("zmq relay without zmq-bind")
		}
	default:
		return errors.NotValidf("relay-driver %q", c.RelayDriver)
	}
	return nil
}
