package meiliclient

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory Client for tests. It records per-method call
// counts so tests can assert that teardown paths issue no remote requests.
type MockClient struct {
	mu sync.Mutex

	Healthy bool
	Keys    []Key
	Indexes []Index

	// Err, when set, is returned by every method.
	Err error

	Calls map[string]int

	nextUID int
}

var _ Client = &MockClient{}

func NewMockClient() *MockClient {
	return &MockClient{
		Healthy: true,
		Calls:   map[string]int{},
	}
}

// MockFactory returns a Factory handing out the same mock regardless of
// endpoint or credential.
func MockFactory(m *MockClient) Factory {
	return func(endpoint, apiKey string) Client { return m }
}

// TotalCalls is the number of remote requests issued across all methods.
func (m *MockClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.Calls {
		total += n
	}
	return total
}

func (m *MockClient) record(method string) {
	m.Calls[method]++
}

func (m *MockClient) Health(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Health")
	if m.Err != nil {
		return m.Err
	}
	if !m.Healthy {
		return fmt.Errorf("unhealthy")
	}
	return nil
}

func (m *MockClient) GetIndex(ctx context.Context, uid string) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetIndex")
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Indexes {
		if m.Indexes[i].UID == uid {
			idx := m.Indexes[i]
			return &idx, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockClient) CreateIndex(ctx context.Context, uid string, primaryKey *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateIndex")
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Indexes {
		if m.Indexes[i].UID == uid {
			return nil
		}
	}
	m.Indexes = append(m.Indexes, Index{UID: uid, PrimaryKey: primaryKey})
	return nil
}

func (m *MockClient) DeleteIndex(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteIndex")
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Indexes {
		if m.Indexes[i].UID == uid {
			m.Indexes = append(m.Indexes[:i], m.Indexes[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockClient) GetKey(ctx context.Context, uid string) (*Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetKey")
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Keys {
		if m.Keys[i].UID == uid {
			key := m.Keys[i]
			return &key, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockClient) ListKeys(ctx context.Context) ([]Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListKeys")
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]Key, len(m.Keys))
	copy(out, m.Keys)
	return out, nil
}

func (m *MockClient) CreateKey(ctx context.Context, params KeyParams) (*Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateKey")
	if m.Err != nil {
		return nil, m.Err
	}
	m.nextUID++
	key := Key{
		UID:         fmt.Sprintf("uid-%d", m.nextUID),
		Key:         fmt.Sprintf("value-%d", m.nextUID),
		Name:        params.Name,
		Description: params.Description,
		Actions:     params.Actions,
		Indexes:     params.Indexes,
		ExpiresAt:   params.ExpiresAt,
	}
	m.Keys = append(m.Keys, key)
	return &key, nil
}

func (m *MockClient) DeleteKey(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteKey")
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Keys {
		if m.Keys[i].UID == uid {
			m.Keys = append(m.Keys[:i], m.Keys[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
