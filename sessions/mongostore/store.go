// Package mongostore persists session records in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrebq/authbox/sessions"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	DefaultDBName         = "authbox"
	DefaultCollectionName = "user_sessions"
)

type (
	Store struct {
		coll *mongo.Collection
	}

	sessionDoc struct {
		ID        string    `bson:"_id"`
		UserID    string    `bson:"user_id"`
		CreatedAt time.Time `bson:"created_at"`
	}
)

// Connect opens a client for uri and returns a store backed by
// dbName.collName. The returned function disconnects the client.
func Connect(ctx context.Context, uri, dbName, collName string) (*Store, func(context.Context) error, error) {
	if dbName == "" {
		dbName = DefaultDBName
	}
	if collName == "" {
		collName = DefaultCollectionName
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongostore: unable to connect, cause %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongostore: unable to ping server, cause %w", err)
	}
	return New(client.Database(dbName).Collection(collName)), client.Disconnect, nil
}

func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

func (s *Store) SaveSession(ctx context.Context, rec sessions.Record) error {
	_, err := s.coll.InsertOne(ctx, sessionDoc{
		ID:        rec.ID,
		UserID:    rec.UserID,
		CreatedAt: rec.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("mongostore: unable to save session, cause %w", err)
	}
	return nil
}

func (s *Store) LookupSession(ctx context.Context, id string) (sessions.Record, bool, error) {
	var doc sessionDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sessions.Record{}, false, nil
	} else if err != nil {
		return sessions.Record{}, false, fmt.Errorf("mongostore: unable to lookup session, cause %w", err)
	}
	return sessions.Record{ID: doc.ID, UserID: doc.UserID, CreatedAt: doc.CreatedAt}, true, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("mongostore: unable to delete session, cause %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("mongostore: unable to delete expired sessions, cause %w", err)
	}
	return res.DeletedCount, nil
}

var (
	_ sessions.Persister = (*Store)(nil)
	_ sessions.Expirer   = (*Store)(nil)
)
