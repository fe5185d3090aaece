package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"dash-representation/internal/representation"
)

const (
	keyPrefix    = "dash:bitrate:"
	probeTimeout = 500 * time.Millisecond
	opTimeout    = time.Second
)

// RedisOptions selects the redis server holding the preferences.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is a Store shared by every player using the same redis server.
type RedisStore struct {
	rdb       *redis.Client
	logger    *slog.Logger
	supported bool
}

// NewRedisStore returns a store backed by the given server. The server is
// pinged once here; a store whose server did not answer is unsupported for its
// whole lifetime, so Supported never blocks.
func NewRedisStore(opts RedisOptions, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &RedisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		logger: logger,
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		s.logger.Warn("Preference store unavailable", "addr", opts.Addr, "error", err)
	} else {
		s.supported = true
	}
	return s
}

// Supported implements Store. It reports whether the server answered the
// ping at construction.
func (s *RedisStore) Supported() bool {
	return s.supported
}

// SetBitrate implements Store.
func (s *RedisStore) SetBitrate(t representation.MediaType, kbps float64, at time.Time) error {
	value, err := json.Marshal(Record{Bitrate: kbps, Timestamp: at})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := s.rdb.Set(ctx, keyPrefix+string(t), value, 0).Err(); err != nil {
		return fmt.Errorf("store %s bitrate: %w", t, err)
	}
	return nil
}

// Bitrate implements Store.
func (s *RedisStore) Bitrate(t representation.MediaType) (float64, bool) {
	if !s.Supported() {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	value, err := s.rdb.Get(ctx, keyPrefix+string(t)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Failed to read bitrate preference", "mediaType", t, "error", err)
		}
		return 0, false
	}
	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		s.logger.Warn("Discarding malformed bitrate preference", "mediaType", t, "error", err)
		return 0, false
	}
	return rec.Bitrate, true
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
