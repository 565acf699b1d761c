package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ObjectStore is the port to the external binary store: put bytes under a
// name, read them back, delete them. URL construction happens in the
// pipeline, not here.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Get(ctx context.Context, name string) ([]byte, string, error)
	Delete(ctx context.Context, name string) error
}

// JetStreamStore backs ObjectStore with a NATS JetStream object bucket.
type JetStreamStore struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	bucket jetstream.ObjectStore
	name   string
}

func NewJetStreamStore(natsURL, bucketName string) (*JetStreamStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamStore{conn: conn, js: js, name: bucketName}, nil
}

// Init binds to the object bucket, creating it on first run.
func (s *JetStreamStore) Init(ctx context.Context) error {
	bucket, err := s.js.ObjectStore(ctx, s.name)
	if err == nil {
		s.bucket = bucket
		return nil
	}

	bucket, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      s.name,
		Description: "task image attachments",
	})
	if err != nil {
		return fmt.Errorf("failed to create object bucket: %w", err)
	}

	s.bucket = bucket
	return nil
}

func (s *JetStreamStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	meta := jetstream.ObjectMeta{
		Name: name,
		Headers: nats.Header{
			"Content-Type": []string{contentType},
		},
	}

	if _, err := s.bucket.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store object %s: %w", name, err)
	}
	return nil
}

func (s *JetStreamStore) Get(ctx context.Context, name string) ([]byte, string, error) {
	result, err := s.bucket.Get(ctx, name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object %s: %w", name, err)
	}
	defer result.Close()

	data := new(bytes.Buffer)
	if _, err := data.ReadFrom(result); err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", name, err)
	}

	info, err := result.Info()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object info for %s: %w", name, err)
	}

	contentType := "application/octet-stream"
	if info.Headers != nil {
		if ct := info.Headers.Get("Content-Type"); ct != "" {
			contentType = ct
		}
	}

	return data.Bytes(), contentType, nil
}

func (s *JetStreamStore) Delete(ctx context.Context, name string) error {
	if err := s.bucket.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	return nil
}

func (s *JetStreamStore) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *JetStreamStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
