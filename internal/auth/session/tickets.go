package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brizzai/entitlement-gate/internal/config"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const defaultTicketTTL = 2 * time.Minute

// ErrUnsupportedStore is returned for an unknown ticket store driver.
var ErrUnsupportedStore = errors.New("unsupported ticket store")

// TicketStore holds single-use finalize tickets minted after a granted login.
type TicketStore interface {
	// Create mints a new ticket that expires after the store's TTL.
	Create(ctx context.Context) (string, error)
	// Redeem consumes id. It returns true at most once per ticket.
	Redeem(ctx context.Context, id string) (bool, error)
}

// MemoryTicketStore keeps tickets in process memory. Tickets do not survive a restart
// and are not shared between replicas.
type MemoryTicketStore struct {
	c *gocache.Cache
}

func NewMemoryTicketStore(ttl time.Duration) *MemoryTicketStore {
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	return &MemoryTicketStore{c: gocache.New(ttl, time.Minute)}
}

func (m *MemoryTicketStore) Create(_ context.Context) (string, error) {
	id := uuid.NewString()
	if err := m.c.Add(id, 0, gocache.DefaultExpiration); err != nil {
		return "", fmt.Errorf("failed to store ticket: %w", err)
	}
	return id, nil
}

func (m *MemoryTicketStore) Redeem(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	// IncrementInt is atomic under the cache lock, so only the first caller sees 1.
	n, err := m.c.IncrementInt(id, 1)
	if err != nil {
		return false, nil
	}
	m.c.Delete(id)
	return n == 1, nil
}

// RedisTicketStore keeps tickets in redis so any replica can redeem them.
type RedisTicketStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisTicketStore(client *redis.Client, ttl time.Duration) *RedisTicketStore {
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	return &RedisTicketStore{client: client, prefix: "gate:ticket:", ttl: ttl}
}

func (r *RedisTicketStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisTicketStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key(id), "1", r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store ticket: %w", err)
	}
	if !ok {
		return "", errors.New("failed to store ticket: id collision")
	}
	return id, nil
}

func (r *RedisTicketStore) Redeem(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	_, err := r.client.GetDel(ctx, r.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to redeem ticket: %w", err)
	}
	return true, nil
}

// Close releases the redis connection pool.
func (r *RedisTicketStore) Close() error {
	return r.client.Close()
}

// NewTicketStore builds the store selected by cfg.TicketStore.
func NewTicketStore(cfg *config.SessionConfig) (TicketStore, error) {
	switch cfg.TicketStore {
	case config.TicketStoreMemory, "":
		return NewMemoryTicketStore(cfg.TicketTTL), nil
	case config.TicketStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisTicketStore(client, cfg.TicketTTL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStore, cfg.TicketStore)
	}
}
