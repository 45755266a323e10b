package gate

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Sentinel errors returned by Authorize.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoResolver   = errors.New("no profile resolver configured")
)

// Profile is a resolved role: a name plus its permission set.
type Profile struct {
	RoleID      uint
	Name        string
	Permissions []Permission
}

// Has reports whether the profile grants the requested permission.
func (p Profile) Has(requested Permission) bool {
	for _, perm := range p.Permissions {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// Resolver maps a user id to their profile (typically via the roles
// table). Resolution failure is treated as denial.
type Resolver interface {
	Resolve(ctx context.Context, userID uint) (Profile, error)
}

// Gate checks permissions for users through a Resolver.
type Gate struct {
	resolver Resolver
}

func New(r Resolver) *Gate { return &Gate{resolver: r} }

// Authorize returns nil when userID may perform action on resource.
func (g *Gate) Authorize(ctx context.Context, userID uint, resource string, action Action) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	if g.resolver == nil {
		return ErrNoResolver
	}
	profile, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		return ErrUnauthorized
	}
	if !profile.Has(NewPermission(resource, action)) {
		return ErrUnauthorized
	}
	return nil
}

// Can is the bool convenience form of Authorize.
func (g *Gate) Can(ctx context.Context, userID uint, resource string, action Action) bool {
	return g.Authorize(ctx, userID, resource, action) == nil
}

// CachedResolver wraps a Resolver with TTL caching so authorization
// does not hit the database on every request.
type CachedResolver struct {
	inner Resolver
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[uint]cacheEntry
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{inner: inner, ttl: ttl, cache: make(map[uint]cacheEntry)}
}

func (r *CachedResolver) Resolve(ctx context.Context, userID uint) (Profile, error) {
	r.mu.RLock()
	entry, ok := r.cache[userID]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.profile, nil
	}
	profile, err := r.inner.Resolve(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	r.mu.Lock()
	r.cache[userID] = cacheEntry{profile: profile, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()
	return profile, nil
}

// Invalidate drops a user's cached profile, e.g. after a role change.
func (r *CachedResolver) Invalidate(userID uint) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}

// StaticResolver is an in-memory resolver for tests.
type StaticResolver map[uint]Profile

func (s StaticResolver) Resolve(_ context.Context, userID uint) (Profile, error) {
	p, ok := s[userID]
	if !ok {
		return Profile{}, ErrUnauthorized
	}
	return p, nil
}
