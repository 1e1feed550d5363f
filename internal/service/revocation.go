package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/altostack/contactvault/internal/constants"
	"github.com/altostack/contactvault/pkg/logger"
	"github.com/altostack/contactvault/pkg/redis"
	"go.uber.org/zap"
)

// RevocationStore tracks tokens explicitly invalidated before their natural
// expiry. The auth middleware must consult it on every protected request.
type RevocationStore interface {
	Revoke(ctx context.Context, token string) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	Close()
}

// MemoryRevocationStore keeps the revocation set in process memory behind a
// mutex. A background sweeper periodically re-validates each entry and drops
// tokens that no longer verify, bounding memory growth. Suitable for a
// single instance only; multi-instance deployments get the Redis store.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]struct{}

	jwtService *JWTService
	done       chan struct{}
	closeOnce  sync.Once
}

func NewMemoryRevocationStore(jwtService *JWTService, sweepInterval time.Duration) *MemoryRevocationStore {
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}

	s := &MemoryRevocationStore{
		revoked:    make(map[string]struct{}),
		jwtService: jwtService,
		done:       make(chan struct{}),
	}

	go s.sweepLoop(sweepInterval)
	return s
}

func (s *MemoryRevocationStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = struct{}{}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := s.revoked[token]
	return found, nil
}

// Close stops the background sweeper
func (s *MemoryRevocationStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *MemoryRevocationStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}

// Sweep drops entries that no longer pass verification. An entry failing
// verification is almost always expired; a tampered token evicted here would
// be rejected by signature checks anyway.
func (s *MemoryRevocationStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.revoked)
	for token := range s.revoked {
		if _, err := s.jwtService.ValidateToken(token); err != nil {
			delete(s.revoked, token)
		}
	}

	if dropped := before - len(s.revoked); dropped > 0 {
		logger.GetLogger().Debug("Revocation sweep completed",
			zap.Int("dropped", dropped),
			zap.Int("remaining", len(s.revoked)),
		)
	}
}

// Len reports the current size of the revocation set
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}

// RedisRevocationStore keeps the revocation set in Redis so it is shared
// across instances. Entries carry a TTL equal to the token's remaining
// lifetime, so expiry handles the sweeping.
type RedisRevocationStore struct {
	client     redis.Client
	jwtService *JWTService
}

func NewRedisRevocationStore(client redis.Client, jwtService *JWTService) *RedisRevocationStore {
	return &RedisRevocationStore{
		client:     client,
		jwtService: jwtService,
	}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, token string) error {
	ttl := time.Hour
	if claims, err := s.jwtService.ValidateToken(token); err == nil {
		if remaining := s.jwtService.TokenRemainingLifetime(claims); remaining > 0 {
			ttl = remaining
		}
	}

	return s.client.SetEX(ctx, revocationKey(token), "1", ttl)
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.client.Exists(ctx, revocationKey(token))
}

func (s *RedisRevocationStore) Close() {}

// revocationKey hashes the raw token so bearer credentials never appear as
// Redis keys.
func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return constants.RevocationKeyPrefix + hex.EncodeToString(sum[:])
}
