package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sightline/internal/server/config"
	"sightline/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zaptest"
)

// newTestStorage builds a MongoStorage whose dial func counts invocations
// and never touches the network: mongo.Connect is lazy, so the client only
// dials when an operation runs against it.
func newTestStorage(t *testing.T, dials *int32) *MongoStorage {
	t.Helper()

	s := &MongoStorage{
		cfg: &config.StorageConfig{
			Database:       "sightline",
			ConnectTimeout: time.Second,
		},
		logger: zaptest.NewLogger(t),
	}
	s.dial = func(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
		atomic.AddInt32(dials, 1)
		client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://localhost:27017"))
		if err != nil {
			return nil, nil, err
		}
		return client, client.Database(s.cfg.Database), nil
	}
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})
	return s
}

func TestReconnectSingleFlight(t *testing.T) {
	var dials int32
	s := newTestStorage(t, &dials)

	// N callers that all observed the same dead generation race into
	// reconnect; exactly one dials, the rest reuse its client.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db, err := s.reconnect(context.Background(), 0)
			assert.NoError(t, err)
			assert.NotNil(t, db)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&dials))
	assert.EqualValues(t, 1, s.generation)
}

func TestReconnectReplacesDeadClient(t *testing.T) {
	var dials int32
	s := newTestStorage(t, &dials)

	_, err := s.reconnect(context.Background(), 0)
	require.NoError(t, err)
	first := s.client

	// A caller that pinged the current generation and failed gets a fresh
	// client; the dead one is swapped out, not abandoned.
	_, err = s.reconnect(context.Background(), s.generation)
	require.NoError(t, err)

	assert.NotSame(t, first, s.client)
	assert.EqualValues(t, 2, dials)
	assert.EqualValues(t, 2, s.generation)
}

func TestReconnectStaleObserverReusesCurrent(t *testing.T) {
	var dials int32
	s := newTestStorage(t, &dials)

	_, err := s.reconnect(context.Background(), 0)
	require.NoError(t, err)
	current := s.client

	// Generation 0 is stale once the first reconnect landed; no redial.
	db, err := s.reconnect(context.Background(), 0)
	require.NoError(t, err)

	assert.NotNil(t, db)
	assert.Same(t, current, s.client)
	assert.EqualValues(t, 1, dials)
}

func TestAgentUpsertDocument(t *testing.T) {
	seenAt := time.Date(2025, 4, 29, 13, 7, 51, 0, time.UTC)

	update := agentUpsert("EMP001", "Jordan Smith", seenAt)

	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, seenAt, set["last_seen"])
	assert.Equal(t, types.AgentStatusActive, set["status"])
	assert.Equal(t, "Jordan Smith", set["display_name"])

	// first_seen rides $min so concurrent first contacts converge on the
	// earliest observed timestamp instead of the insert winner's.
	min, ok := update["$min"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, seenAt, min["first_seen"])

	onInsert, ok := update["$setOnInsert"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, "EMP001", onInsert["agent_id"])
	assert.NotContains(t, onInsert, "first_seen")
}

func TestAgentUpsertOmitsEmptyDisplayName(t *testing.T) {
	update := agentUpsert("EMP001", "", time.Now().UTC())

	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	assert.NotContains(t, set, "display_name")
}
