package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sightline/internal/server/config"
	"sightline/internal/types"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names
const (
	agentsCollection      = "agents"
	activityCollection    = "activity_logs"
	screenshotsCollection = "screenshots"
)

// MongoStorage implements Storage on MongoDB. The client is a long-lived
// shared resource; a liveness ping precedes reuse and a lost connection
// triggers a reconnect before the next operation, never a crash.
// Reconnection is single-flight: the generation counter lets concurrent
// callers that all saw the same dead client agree on who redials, and the
// replaced client is always disconnected so its pool does not leak.
type MongoStorage struct {
	cfg    *config.StorageConfig
	logger *zap.Logger

	// injected for tests; dials a real server in production
	dial func(ctx context.Context) (*mongo.Client, *mongo.Database, error)

	mu         sync.Mutex
	client     *mongo.Client
	db         *mongo.Database
	generation uint64
}

// NewStorage creates new MongoDB-backed storage and verifies connectivity
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (*MongoStorage, error) {
	s := &MongoStorage{
		cfg:    cfg,
		logger: logger,
	}
	s.dial = s.dialMongo

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if _, err := s.reconnect(ctx, 0); err != nil {
		return nil, err
	}

	return s, nil
}

// dialMongo establishes a fresh client and ensures indexes
func (s *MongoStorage) dialMongo(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(s.cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(s.cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(s.cfg.Database)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	return client, db, nil
}

// reconnect swaps in a fresh client, observed being the generation the
// caller last saw. Holding the lock across the dial serializes concurrent
// reconnect attempts; latecomers whose generation is already stale reuse
// the client the winner installed instead of dialing their own.
func (s *MongoStorage) reconnect(ctx context.Context, observed uint64) (*mongo.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil && s.generation != observed {
		return s.db, nil
	}

	client, db, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	if s.client != nil {
		if err := s.client.Disconnect(context.Background()); err != nil {
			s.logger.Warn("Failed to disconnect stale mongodb client", zap.Error(err))
		}
	}

	s.client = client
	s.db = db
	s.generation++

	s.logger.Info("MongoDB connection established",
		zap.String("database", s.cfg.Database))
	return db, nil
}

// ensureIndexes creates the collection indexes on connect
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(agentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "agent_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(activityCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(screenshotsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "storage_path", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

// database returns a live database handle, pinging first and reconnecting
// when the connection was lost.
func (s *MongoStorage) database(ctx context.Context) (*mongo.Database, error) {
	s.mu.Lock()
	client, db, gen := s.client, s.db, s.generation
	s.mu.Unlock()

	if client != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		err := client.Ping(pingCtx, nil)
		cancel()
		if err == nil {
			return db, nil
		}
		s.logger.Warn("MongoDB connection lost, reconnecting", zap.Error(err))
	}

	db, err := s.reconnect(ctx, gen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return db, nil
}

// agentUpsert builds the update document for one agent contact.
// first_seen uses $min so concurrent first contacts converge on the
// earliest observed timestamp regardless of which insert wins the race.
func agentUpsert(agentID, displayName string, seenAt time.Time) bson.M {
	set := bson.M{
		"last_seen": seenAt,
		"status":    types.AgentStatusActive,
	}
	if displayName != "" {
		set["display_name"] = displayName
	}
	return bson.M{
		"$set":         set,
		"$min":         bson.M{"first_seen": seenAt},
		"$setOnInsert": bson.M{"agent_id": agentID},
	}
}

// UpsertAgent creates or updates the agent document atomically. The
// update-or-insert by unique key happens server-side, so overlapping
// first-contact upserts cannot produce duplicates or lost updates.
func (s *MongoStorage) UpsertAgent(ctx context.Context, agentID, displayName string, seenAt time.Time) error {
	db, err := s.database(ctx)
	if err != nil {
		return err
	}

	_, err = db.Collection(agentsCollection).UpdateOne(ctx,
		bson.M{"agent_id": agentID},
		agentUpsert(agentID, displayName, seenAt),
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert agent %s: %w", agentID, err)
	}
	return nil
}

// SaveActivity appends one activity record
func (s *MongoStorage) SaveActivity(ctx context.Context, record *types.ActivityRecord) error {
	db, err := s.database(ctx)
	if err != nil {
		return err
	}

	if _, err := db.Collection(activityCollection).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert activity record: %w", err)
	}
	return nil
}

// SaveScreenshot appends one screenshot metadata record
func (s *MongoStorage) SaveScreenshot(ctx context.Context, record *types.ScreenshotRecord) error {
	db, err := s.database(ctx)
	if err != nil {
		return err
	}

	if _, err := db.Collection(screenshotsCollection).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert screenshot record: %w", err)
	}
	return nil
}

// GetAgents returns all agents sorted by last_seen descending
func (s *MongoStorage) GetAgents(ctx context.Context) ([]*types.Agent, error) {
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := db.Collection(agentsCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "last_seen", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}

	var agents []*types.Agent
	if err := cursor.All(ctx, &agents); err != nil {
		return nil, fmt.Errorf("failed to decode agents: %w", err)
	}
	return agents, nil
}

// GetAgent returns one agent or types.ErrAgentNotFound
func (s *MongoStorage) GetAgent(ctx context.Context, agentID string) (*types.Agent, error) {
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}

	var agent types.Agent
	err = db.Collection(agentsCollection).FindOne(ctx, bson.M{"agent_id": agentID}).Decode(&agent)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query agent %s: %w", agentID, err)
	}
	return &agent, nil
}

// GetActivity returns recent activity records for an agent, newest first
func (s *MongoStorage) GetActivity(ctx context.Context, agentID string, limit int64) ([]*types.ActivityRecord, error) {
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := db.Collection(activityCollection).Find(ctx,
		bson.M{"agent_id": agentID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query activity for %s: %w", agentID, err)
	}

	var records []*types.ActivityRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode activity records: %w", err)
	}
	return records, nil
}

// GetScreenshots returns recent screenshot records for an agent, newest first
func (s *MongoStorage) GetScreenshots(ctx context.Context, agentID string, limit int64) ([]*types.ScreenshotRecord, error) {
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := db.Collection(screenshotsCollection).Find(ctx,
		bson.M{"agent_id": agentID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query screenshots for %s: %w", agentID, err)
	}

	var records []*types.ScreenshotRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode screenshot records: %w", err)
	}
	return records, nil
}

// MarkOffline flags agents with no report since cutoff
func (s *MongoStorage) MarkOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	db, err := s.database(ctx)
	if err != nil {
		return 0, err
	}

	result, err := db.Collection(agentsCollection).UpdateMany(ctx,
		bson.M{
			"last_seen": bson.M{"$lt": cutoff},
			"status":    types.AgentStatusActive,
		},
		bson.M{"$set": bson.M{"status": types.AgentStatusOffline}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark agents offline: %w", err)
	}
	return result.ModifiedCount, nil
}

// Cleanup removes activity and screenshot records older than cutoff
func (s *MongoStorage) Cleanup(ctx context.Context, cutoff time.Time) error {
	db, err := s.database(ctx)
	if err != nil {
		return err
	}

	filter := bson.M{"timestamp": bson.M{"$lt": cutoff}}

	if _, err := db.Collection(activityCollection).DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to prune activity records: %w", err)
	}
	if _, err := db.Collection(screenshotsCollection).DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to prune screenshot records: %w", err)
	}
	return nil
}

// Health checks store connectivity
func (s *MongoStorage) Health(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return types.ErrStorageUnavailable
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return nil
}

// Close releases the store connection
func (s *MongoStorage) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.db = nil
	return err
}
