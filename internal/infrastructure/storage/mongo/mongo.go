// Package mongo keeps client key/value entries as fields of a single MongoDB
// document, so multi-key writes are atomic.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/resumeforge/tailor-client/internal/core/ports"
)

const (
	defaultTimeout = 10 * time.Second
	collection     = "client_state"
	defaultDocID   = "default"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// Store implements ports.KeyValueStore on one document of client_state.
type Store struct {
	coll  *mongo.Collection
	docID string
}

var _ ports.KeyValueStore = (*Store)(nil)

// NewStore uses the document identified by docID, "default" when empty.
func NewStore(db *mongo.Database, docID string) *Store {
	if docID == "" {
		docID = defaultDocID
	}
	return &Store{coll: db.Collection(collection), docID: docID}
}

type stateDocument struct {
	ID        string            `bson:"_id"`
	Entries   map[string]string `bson:"entries"`
	UpdatedAt int64             `bson:"updated_at"`
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))

	var doc stateDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": s.docID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find state: %w", err)
	}
	for _, k := range keys {
		if v, ok := doc.Entries[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, entries map[string]string) error {
	set := bson.M{"updated_at": time.Now().Unix()}
	for k, v := range entries {
		set["entries."+k] = v
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": s.docID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	unset := bson.M{}
	for _, k := range keys {
		unset["entries."+k] = ""
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": s.docID},
		bson.M{"$unset": unset, "$set": bson.M{"updated_at": time.Now().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return s.coll.Database().Client().Disconnect(ctx)
}
