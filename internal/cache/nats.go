package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSKV stores values in a JetStream key-value bucket.
//
// JetStream keys cannot contain ':' so keys are stored with ':' replaced by '.'.
// Per-key ttl is not supported by the bucket and is ignored; the bucket's own
// history and age limits apply.
type NATSKV struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSKV connects to url and opens (creating if needed) the named bucket.
func NewNATSKV(ctx context.Context, url, bucket string) (*NATSKV, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open bucket %s: %w", bucket, err)
	}

	return &NATSKV{conn: nc, kv: kv}, nil
}

func natsKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

func (c *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := c.kv.Get(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value(), nil
}

func (c *NATSKV) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := c.kv.Put(ctx, natsKey(key), value); err != nil {
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}
	return nil
}

func (c *NATSKV) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Close drains the connection.
func (c *NATSKV) Close() error {
	c.conn.Close()
	return nil
}
