package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrCodeEU/posegate/pkg/config"
	"github.com/MrCodeEU/posegate/pkg/logging"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records in a single Redis hash keyed by email. Each field
// holds one JSON-encoded record.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	now    func() time.Time
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	logging.Component("storage").Infof("Connecting to Redis at %s...", cfg.Addr)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client. Records live under
// "<prefix>:users".
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "posegate"
	}
	return &RedisStore{
		client: client,
		key:    prefix + ":users",
		now:    time.Now,
	}
}

// Key returns the hash holding the records.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) get(ctx context.Context, email string) (*UserRecord, error) {
	val, err := s.client.HGet(ctx, s.key, email).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %w", email, err)
	}

	var rec UserRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		logging.Component("storage").WithError(err).Warnf("Skipping corrupted record for %s", email)
		return nil, ErrUserNotFound
	}
	rec.normalizePoses()
	return &rec, nil
}

// FindUser implements Repository.
func (s *RedisStore) FindUser(ctx context.Context, email string) (*UserRecord, error) {
	return s.get(ctx, NormalizeEmail(email))
}

// AddUser implements Repository.
func (s *RedisStore) AddUser(ctx context.Context, rec UserRecord) error {
	rec, err := prepareNew(rec, s.now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", rec.Email, err)
	}

	added, err := s.client.HSetNX(ctx, s.key, rec.Email, data).Result()
	if err != nil {
		return fmt.Errorf("failed to store user %s: %w", rec.Email, err)
	}
	if !added {
		return ErrUserExists
	}

	logging.Component("storage").Infof("Added user: %s", rec.Email)
	return nil
}

// UpdateUser implements Repository. The record keeps its original ID and
// enrollment time.
func (s *RedisStore) UpdateUser(ctx context.Context, rec UserRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	email := NormalizeEmail(rec.Email)
	existing, err := s.get(ctx, email)
	if err != nil {
		return err
	}

	rec = rec.clone()
	rec.Email = email
	rec.ID = existing.ID
	rec.EnrolledAt = existing.EnrolledAt
	rec.UpdatedAt = s.now()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", email, err)
	}
	if err := s.client.HSet(ctx, s.key, email, data).Err(); err != nil {
		return fmt.Errorf("failed to store user %s: %w", email, err)
	}
	return nil
}

// ListUsers implements Repository. Emails are returned sorted.
func (s *RedisStore) ListUsers(ctx context.Context) ([]string, error) {
	emails, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sort.Strings(emails)
	return emails, nil
}

// DeleteUser implements Repository.
func (s *RedisStore) DeleteUser(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	n, err := s.client.HDel(ctx, s.key, email).Result()
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", email, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}

	logging.Component("storage").Infof("Deleted user: %s", email)
	return nil
}

// Close implements Repository.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
