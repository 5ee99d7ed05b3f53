// Platform registration and fetcher definitions.

package profile

import (
	"context"
	"log/slog"
	"sync"
)

// Fetcher fetches one platform's profile for a username.
// An empty username must return ErrNotConnected without issuing a request.
type Fetcher interface {
	Fetch(ctx context.Context, username string) (*PlatformProfile, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, username string) (*PlatformProfile, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, username string) (*PlatformProfile, error) {
	return f(ctx, username)
}

// FetcherConfig holds configuration for creating platform fetchers.
type FetcherConfig struct {
	Cache       any // httpcache.Cacher - use any to avoid import cycles
	Logger      *slog.Logger
	GitHubToken string
}

// FactoryFunc builds a Fetcher from shared configuration.
// This allows platforms to register without the caller knowing the client type.
type FactoryFunc func(ctx context.Context, cfg *FetcherConfig) (Fetcher, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[Kind]FactoryFunc)
)

// Register adds a platform factory to the global registry.
// This should be called from each platform package's init() function.
func Register(kind Kind, factory FactoryFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[kind]; exists {
		panic("platform already registered: " + string(kind))
	}
	registry[kind] = factory
}

// Registered returns the kinds with a registered factory, in Kinds order.
func Registered() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []Kind
	for _, k := range Kinds {
		if _, ok := registry[k]; ok {
			result = append(result, k)
		}
	}
	return result
}

// NewFetcher builds the registered fetcher for kind.
// Returns ErrNotConnected if no platform package registered that kind.
func NewFetcher(ctx context.Context, kind Kind, cfg *FetcherConfig) (Fetcher, error) {
	registryMu.RLock()
	factory := registry[kind]
	registryMu.RUnlock()

	if factory == nil {
		return nil, ErrNotConnected
	}
	if cfg == nil {
		cfg = &FetcherConfig{}
	}
	return factory(ctx, cfg)
}
