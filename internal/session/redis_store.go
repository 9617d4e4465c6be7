package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:id:"
	phoneKeyPrefix   = "session:phone:"
	sessionTTL       = 24 * time.Hour
)

// RedisStore keeps sessions in Redis so multiple instances can share them.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a session store backed by Redis.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func phoneKey(phoneNumber, channel string) string {
	return phoneKeyPrefix + phoneNumber + ":" + channel
}

// Create registers a new session with a fresh unique id.
func (s *RedisStore) Create(ctx context.Context, phoneNumber, channel string) (Session, error) {
	sess := Session{
		ID:          uuid.NewString(),
		PhoneNumber: phoneNumber,
		Channel:     strings.ToLower(channel),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("session: marshal: %w", err)
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, sessionKey(sess.ID), data, sessionTTL)
	pipe.Set(ctx, phoneKey(sess.PhoneNumber, sess.Channel), sess.ID, sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return Session{}, fmt.Errorf("session: create: %w", err)
	}
	return sess, nil
}

// Get fetches an existing session by id.
func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("session: get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("session: unmarshal: %w", err)
	}
	return sess, nil
}

// GetByPhoneAndChannel finds a session via the phone/channel index.
func (s *RedisStore) GetByPhoneAndChannel(ctx context.Context, phoneNumber, channel string) (Session, error) {
	id, err := s.rdb.Get(ctx, phoneKey(phoneNumber, strings.ToLower(channel))).Result()
	if err != nil {
		if err == redis.Nil {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("session: get by phone: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes the session and its phone/channel index entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.Del(ctx, phoneKey(sess.PhoneNumber, sess.Channel))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}
