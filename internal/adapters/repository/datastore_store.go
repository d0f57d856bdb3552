package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"

	"github.com/futuretasks/core/internal/ports"
)

const pingKey = "__ping__"

type datastoreEntry struct {
	Value     string    `datastore:"value,noindex"`
	UpdatedAt time.Time `datastore:"updated_at"`
}

// DatastoreStore keeps one Cloud Datastore entity per key.
type DatastoreStore struct {
	client    *datastore.Client
	kind      string
	namespace string
}

var _ ports.KeyValueStore = (*DatastoreStore)(nil)

// NewDatastoreStore wraps an existing client
func NewDatastoreStore(client *datastore.Client, kind, namespace string) *DatastoreStore {
	return &DatastoreStore{client: client, kind: kind, namespace: namespace}
}

func (s *DatastoreStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry datastoreEntry
	err := s.client.Get(ctx, s.key(key), &entry)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("datastore get %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *DatastoreStore) Set(ctx context.Context, key, value string) error {
	entry := &datastoreEntry{Value: value, UpdatedAt: time.Now().UTC()}
	if _, err := s.client.Put(ctx, s.key(key), entry); err != nil {
		return fmt.Errorf("datastore put %s: %w", key, err)
	}
	return nil
}

// Ping performs a lookup; a missing entity still proves the service answers.
func (s *DatastoreStore) Ping(ctx context.Context) error {
	_, _, err := s.Get(ctx, pingKey)
	return err
}

func (s *DatastoreStore) Close() error {
	return s.client.Close()
}

func (s *DatastoreStore) key(name string) *datastore.Key {
	k := datastore.NameKey(s.kind, name, nil)
	k.Namespace = s.namespace
	return k
}
