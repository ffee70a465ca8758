package currency

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoPreference is returned when a user has not chosen a currency
	ErrNoPreference = errors.New("no currency preference")

	// ErrUnsupportedCurrency is returned when storing a code without a symbol
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// Preferences stores the display currency each user picked
type Preferences interface {
	Currency(ctx context.Context, userID string) (string, error)
	SetCurrency(ctx context.Context, userID, code string) error
}

// RedisPreferences keeps preferences in Redis
type RedisPreferences struct {
	client *redis.Client
}

// NewRedisPreferences creates a Redis-backed preference store
func NewRedisPreferences(client *redis.Client) *RedisPreferences {
	return &RedisPreferences{client: client}
}

// Compile-time interface checks.
var (
	_ Preferences = (*RedisPreferences)(nil)
	_ Preferences = (*MemoryPreferences)(nil)
)

func preferenceKey(userID string) string {
	return fmt.Sprintf("casecheck:pref:%s:currency", userID)
}

func (p *RedisPreferences) Currency(ctx context.Context, userID string) (string, error) {
	code, err := p.client.Get(ctx, preferenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoPreference
	}
	if err != nil {
		return "", fmt.Errorf("reading currency preference: %w", err)
	}
	return code, nil
}

func (p *RedisPreferences) SetCurrency(ctx context.Context, userID, code string) error {
	code = normalizeCode(code)
	if _, ok := symbols[code]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}
	if err := p.client.Set(ctx, preferenceKey(userID), code, 0).Err(); err != nil {
		return fmt.Errorf("writing currency preference: %w", err)
	}
	return nil
}

// MemoryPreferences keeps preferences in process memory
type MemoryPreferences struct {
	mu    sync.RWMutex
	codes map[string]string
}

// NewMemoryPreferences creates an empty in-memory preference store
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{codes: make(map[string]string)}
}

func (p *MemoryPreferences) Currency(ctx context.Context, userID string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	code, ok := p.codes[userID]
	if !ok {
		return "", ErrNoPreference
	}
	return code, nil
}

func (p *MemoryPreferences) SetCurrency(ctx context.Context, userID, code string) error {
	code = normalizeCode(code)
	if _, ok := symbols[code]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[userID] = code
	return nil
}
