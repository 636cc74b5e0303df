package mtproto

import (
	"context"
	"sync"

	"github.com/gotd/td/session"
)

// memoryStorage is the gotd session storage. It is seeded from the persisted
// envelope on Connect and read back through Client.Session.
type memoryStorage struct {
	mu   sync.Mutex
	data []byte
}

var _ session.Storage = (*memoryStorage)(nil)

// LoadSession implements session.Storage.
func (s *memoryStorage) LoadSession(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// StoreSession implements session.Storage.
func (s *memoryStorage) StoreSession(_ context.Context, data []byte) error {
	s.set(data)
	return nil
}

func (s *memoryStorage) set(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

func (s *memoryStorage) get() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}
