/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/data"
	"github.com/krishna-kudari/chatService/internal/entity"
	"github.com/krishna-kudari/chatService/internal/eventbus"

	"gorm.io/gorm"
)

type MockLogger struct{}

func (m *MockLogger) Logf(format string, v ...any) {
	fmt.Printf(format+"\n", v...)
}

// MockPublisher records what the services publish
type MockPublisher struct {
	lock   sync.Mutex
	events []eventbus.Event
}

func (m *MockPublisher) Publish(topic string, payload any) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.events = append(m.events, eventbus.Event{Topic: topic, Payload: payload})
	return 1
}

func (m *MockPublisher) Topics() []string {
	m.lock.Lock()
	defer m.lock.Unlock()
	topics := make([]string, 0, len(m.events))
	for _, e := range m.events {
		topics = append(topics, e.Topic)
	}
	return topics
}

func (m *MockPublisher) Last() eventbus.Event {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.events[len(m.events)-1]
}

type testEnv struct {
	db            *gorm.DB
	storage       *data.StorageManager
	conversations ConversationService
	messages      MessageService
	users         UserService
	events        *MockPublisher
}

func newTestEnv(t *testing.T, userIDs ...string) *testEnv {
	t.Helper()
	return newTestEnvOn(t, data.StorageConfig{Driver: data.DriverSQLite, DSN: "file::memory:", MaxOpenConns: 1}, userIDs...)
}

// newTestEnvOn is newTestEnv over the given store
func newTestEnvOn(t *testing.T, cfg data.StorageConfig, userIDs ...string) *testEnv {
	t.Helper()
	db, err := data.OpenDatabase(cfg, nil)
	if err != nil {
		t.Fatalf("Could not open the test database: %v", err)
	}
	storage := data.NewStorageManager(db)
	t.Cleanup(func() { storage.Close() })

	for _, id := range userIDs {
		username := id + "_name"
		if err := db.Create(&entity.User{ID: id, Username: &username}).Error; err != nil {
			t.Fatalf("Could not create user %s: %v", id, err)
		}
	}

	logger := &MockLogger{}
	return &testEnv{
		db:            db,
		storage:       storage,
		conversations: NewConversationService(storage.GetConversationRepository(), logger),
		messages:      NewMessageService(storage.GetMessageRepository(), storage.GetConversationRepository(), logger),
		users:         NewUserService(storage.GetUserRepository(), logger),
		events:        &MockPublisher{},
	}
}

// as returns the request context of userID. An empty userID gives an unauthenticated request
func (e *testEnv) as(userID string) RequestContext {
	if userID == "" {
		return NewRequestContext(nil, e.events)
	}
	return NewRequestContext(&auth.Session{UserID: userID, Username: userID + "_name"}, e.events)
}

func (e *testEnv) participant(t *testing.T, conversationID, userID string) *entity.ConversationParticipant {
	t.Helper()
	var p entity.ConversationParticipant
	if err := e.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&p).Error; err != nil {
		t.Fatalf("Participant %s of %s not found: %v", userID, conversationID, err)
	}
	return &p
}

func (e *testEnv) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}
