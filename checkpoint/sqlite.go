package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists checkpoints to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite checkpoint store.
// The path should be a file path (e.g., "./checkpoints.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			namespace TEXT NOT NULL,
			eventhub_name TEXT NOT NULL,
			consumer_group TEXT NOT NULL,
			partition_id TEXT NOT NULL,
			event_offset TEXT NOT NULL,
			sequence_number INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (namespace, eventhub_name, consumer_group, partition_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// UpdateCheckpoint implements Store.
func (s *SQLiteStore) UpdateCheckpoint(ctx context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (namespace, eventhub_name, consumer_group, partition_id, event_offset, sequence_number, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, eventhub_name, consumer_group, partition_id) DO UPDATE SET
			event_offset = excluded.event_offset,
			sequence_number = excluded.sequence_number,
			updated_at = excluded.updated_at
	`, cp.Namespace, cp.EventHubName, cp.ConsumerGroup, cp.PartitionID, cp.Offset, cp.SequenceNumber,
		time.Now().UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("update checkpoint: %w", err)
	}
	return nil
}

// ListCheckpoints implements Store.
func (s *SQLiteStore) ListCheckpoints(ctx context.Context, namespace, eventHub, consumerGroup string) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT partition_id, event_offset, sequence_number
		FROM checkpoints
		WHERE namespace = ? AND eventhub_name = ? AND consumer_group = ?
		ORDER BY partition_id
	`, namespace, eventHub, consumerGroup)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := []Checkpoint{}
	for rows.Next() {
		cp := Checkpoint{
			Namespace:     namespace,
			EventHubName:  eventHub,
			ConsumerGroup: consumerGroup,
		}
		if err := rows.Scan(&cp.PartitionID, &cp.Offset, &cp.SequenceNumber); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}

	return checkpoints, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
