package checkpoint

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory checkpoint store for testing and local
// development. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[scopeKey]map[string]Checkpoint // scope -> partitionID -> checkpoint
	closed bool
}

type scopeKey struct {
	namespace     string
	eventHub      string
	consumerGroup string
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[scopeKey]map[string]Checkpoint),
	}
}

// UpdateCheckpoint implements Store.
func (m *MemoryStore) UpdateCheckpoint(ctx context.Context, cp Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	scope := scopeKey{cp.Namespace, cp.EventHubName, cp.ConsumerGroup}
	if m.data[scope] == nil {
		m.data[scope] = make(map[string]Checkpoint)
	}
	m.data[scope][cp.PartitionID] = cp

	return nil
}

// ListCheckpoints implements Store.
func (m *MemoryStore) ListCheckpoints(ctx context.Context, namespace, eventHub, consumerGroup string) ([]Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	partitions, ok := m.data[scopeKey{namespace, eventHub, consumerGroup}]
	if !ok {
		return []Checkpoint{}, nil
	}

	checkpoints := make([]Checkpoint, 0, len(partitions))
	for _, cp := range partitions {
		checkpoints = append(checkpoints, cp)
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].PartitionID < checkpoints[j].PartitionID
	})

	return checkpoints, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of checkpoints across all scopes.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, partitions := range m.data {
		count += len(partitions)
	}
	return count
}
