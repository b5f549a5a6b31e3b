package checkpoint_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/hubflow/checkpoint"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) checkpoint.Store

func TestStoreContract(t *testing.T) {
	storeContractTest(t, "memory", func(t *testing.T) checkpoint.Store {
		return checkpoint.NewMemoryStore()
	})
	storeContractTest(t, "sqlite", func(t *testing.T) checkpoint.Store {
		store, err := checkpoint.NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
		require.NoError(t, err)
		return store
	})
}

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/update_and_list_round_trip", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		cp := checkpoint.Checkpoint{
			Namespace:      "ns1",
			EventHubName:   "hub1",
			ConsumerGroup:  checkpoint.DefaultConsumerGroup,
			PartitionID:    "0",
			Offset:         "100",
			SequenceNumber: 42,
		}
		require.NoError(t, store.UpdateCheckpoint(ctx, cp))

		listed, err := store.ListCheckpoints(ctx, "ns1", "hub1", checkpoint.DefaultConsumerGroup)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, cp, listed[0])
	})

	t.Run(name+"/update_overwrites_same_partition", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		first := checkpoint.Checkpoint{
			Namespace: "ns1", EventHubName: "hub1", ConsumerGroup: "$Default",
			PartitionID: "0", Offset: "100", SequenceNumber: 42,
		}
		second := first
		second.Offset = "250"
		second.SequenceNumber = 97

		require.NoError(t, store.UpdateCheckpoint(ctx, first))
		require.NoError(t, store.UpdateCheckpoint(ctx, second))

		listed, err := store.ListCheckpoints(ctx, "ns1", "hub1", "$Default")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "250", listed[0].Offset)
		assert.Equal(t, int64(97), listed[0].SequenceNumber)
	})

	t.Run(name+"/list_empty_scope", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		listed, err := store.ListCheckpoints(ctx, "ns-none", "hub-none", "$Default")
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run(name+"/list_ordered_by_partition", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for _, partition := range []string{"2", "0", "1"} {
			require.NoError(t, store.UpdateCheckpoint(ctx, checkpoint.Checkpoint{
				Namespace: "ns1", EventHubName: "hub1", ConsumerGroup: "$Default",
				PartitionID: partition, Offset: "10", SequenceNumber: 1,
			}))
		}

		listed, err := store.ListCheckpoints(ctx, "ns1", "hub1", "$Default")
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, "0", listed[0].PartitionID)
		assert.Equal(t, "1", listed[1].PartitionID)
		assert.Equal(t, "2", listed[2].PartitionID)
	})

	t.Run(name+"/scopes_are_isolated", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.UpdateCheckpoint(ctx, checkpoint.Checkpoint{
			Namespace: "ns1", EventHubName: "hub1", ConsumerGroup: "$Default",
			PartitionID: "0", Offset: "100", SequenceNumber: 1,
		}))
		require.NoError(t, store.UpdateCheckpoint(ctx, checkpoint.Checkpoint{
			Namespace: "ns1", EventHubName: "hub1", ConsumerGroup: "analytics",
			PartitionID: "0", Offset: "55", SequenceNumber: 9,
		}))

		defaultGroup, err := store.ListCheckpoints(ctx, "ns1", "hub1", "$Default")
		require.NoError(t, err)
		require.Len(t, defaultGroup, 1)
		assert.Equal(t, "100", defaultGroup[0].Offset)

		analytics, err := store.ListCheckpoints(ctx, "ns1", "hub1", "analytics")
		require.NoError(t, err)
		require.Len(t, analytics, 1)
		assert.Equal(t, "55", analytics[0].Offset)

		otherHub, err := store.ListCheckpoints(ctx, "ns1", "hub2", "$Default")
		require.NoError(t, err)
		assert.Empty(t, otherHub)
	})

	t.Run(name+"/closed_store_errors", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		err := store.UpdateCheckpoint(ctx, checkpoint.Checkpoint{
			Namespace: "ns1", EventHubName: "hub1", ConsumerGroup: "$Default",
			PartitionID: "0", Offset: "1", SequenceNumber: 1,
		})
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)

		_, err = store.ListCheckpoints(ctx, "ns1", "hub1", "$Default")
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
	})

	t.Run(name+"/close_idempotent", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}
