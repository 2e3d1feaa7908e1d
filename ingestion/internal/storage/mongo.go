package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/telhawk-systems/relay/common/models"
)

type MongoConfig struct {
	URI            string        `mapstructure:"uri" yaml:"uri"`
	Database       string        `mapstructure:"database" yaml:"database"`
	Collection     string        `mapstructure:"collection" yaml:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// DefaultMongoConfig matches the deployment the relay was built for.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:            "mongodb://mongo:27017/",
		Database:       "chat_db",
		Collection:     "messages",
		ConnectTimeout: 10 * time.Second,
	}
}

// MongoSink inserts one document per record into a MongoDB collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoSink creates the client. The driver connects lazily, so an
// unreachable server is not an error here; inserts fail until it is up.
// The client is shared by all inserts for the lifetime of the process.
func NewMongoSink(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    timeout,
	}, nil
}

// Ping checks that a server is reachable.
func (s *MongoSink) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return nil
}

func (s *MongoSink) Insert(ctx context.Context, rec models.Record) error {
	if err := requireStamped(rec); err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, rec.Document()); err != nil {
		return fmt.Errorf("insert into %s: %w", s.collection.Name(), err)
	}
	return nil
}

func (s *MongoSink) Name() string { return BackendMongo }

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
