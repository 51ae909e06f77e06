/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import (
	"context"
	"strings"
	"time"

	"github.com/krishna-kudari/chatService/internal/entity"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/repository"

	"github.com/juju/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type StorageConfig struct {
	Driver       string        // One of the Driver* constants
	DSN          string        // Driver specific connection string, a file path for sqlite
	MaxOpenConns int           // 0 leaves the driver default
	SlowQuery    time.Duration // Queries slower than this are logged, 0 disables
}

// OpenDatabase opens the database described by cfg and migrates the chat schema.
// Foreign key constraints are not created: conversations reference their latest message and messages
// reference their conversation, and deletions are handled explicitly by the repositories.
func OpenDatabase(cfg StorageConfig, logger nlog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, errors.NotSupportedf("database driver %q", cfg.Driver)
	}

	gormCfg := &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Discard,
	}
	if logger != nil {
		gormCfg.Logger = gormlogger.New(gormWriter{logger}, gormlogger.Config{
			SlowThreshold:             cfg.SlowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s database", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Trace(err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Conversation{},
		&entity.ConversationParticipant{},
		&entity.Message{},
	); err != nil {
		return nil, errors.Annotate(err, "migrating chat schema")
	}
	return db, nil
}

// sqliteDSN makes concurrent writers wait for each other instead of failing with "database is locked".
// Transactions take the write lock when they begin, so two of them can never deadlock upgrading a read lock.
// Options already present in dsn are left untouched.
func sqliteDSN(dsn string) string {
	options := []string{"_busy_timeout=5000", "_txlock=immediate"}
	for _, option := range options {
		key, _, _ := strings.Cut(option, "=")
		if strings.Contains(dsn, key+"=") {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + option
		} else {
			dsn += "?" + option
		}
	}
	return dsn
}

// gormWriter lets gorm's logger write on a subsystem logger
type gormWriter struct {
	logger nlog.Logger
}

func (w gormWriter) Printf(format string, v ...any) {
	w.logger.Logf(format, v...)
}

// Storage manager gathers all the repositories needed for the chat system in a single container.
type StorageManager struct {
	db *gorm.DB

	// Repositories
	userRepo         repository.UserRepository
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
}

func NewStorageManager(db *gorm.DB) *StorageManager {
	return &StorageManager{
		db:               db,
		userRepo:         repository.NewGormUserRepository(db),
		conversationRepo: repository.NewGormConversationRepository(db),
		messageRepo:      repository.NewGormMessageRepository(db),
	}
}

func (s *StorageManager) GetUserRepository() repository.UserRepository {
	return s.userRepo
}

func (s *StorageManager) GetConversationRepository() repository.ConversationRepository {
	return s.conversationRepo
}

func (s *StorageManager) GetMessageRepository() repository.MessageRepository {
	return s.messageRepo
}

// Ping checks that the database still answers
func (s *StorageManager) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func (s *StorageManager) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return sqlDB.Close()
}
