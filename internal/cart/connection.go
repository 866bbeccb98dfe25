package cart

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSettings configures the cart store's MongoDB client.
type MongoSettings struct {
	URI                    string
	Database               string
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	MaxPoolSize            uint64
	MinPoolSize            uint64
}

func (s MongoSettings) clientOptions() *options.ClientOptions {
	opts := options.Client().ApplyURI(s.URI)
	if s.ConnectTimeout > 0 {
		opts.SetConnectTimeout(s.ConnectTimeout)
	}
	if s.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(s.ServerSelectionTimeout)
	}
	if s.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(s.MaxPoolSize)
	}
	if s.MinPoolSize > 0 && s.MinPoolSize <= s.MaxPoolSize {
		opts.SetMinPoolSize(s.MinPoolSize)
	}
	return opts
}

// ConnectMongoDB dials and pings the cart database. The ping runs under
// ConnectTimeout so a dead server fails startup instead of the first request.
func ConnectMongoDB(ctx context.Context, s MongoSettings) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, s.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("mongo connect %s: %w", s.Database, err)
	}

	pingCtx := ctx
	if s.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, s.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo ping %s: %w", s.Database, err)
	}

	return client.Database(s.Database), nil
}
