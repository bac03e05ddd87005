package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"artmarket/internal/domain"
)

// In-process stand-ins for the external collaborators, used by the memory
// storage driver and by tests.

type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]domain.PricePoint
}

func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]domain.PricePoint)}
}

func (c *PriceCache) Initialize(ctx context.Context, listingID string, price decimal.Decimal, endTime time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[listingID] = domain.PricePoint{Price: price, EndTime: endTime}
	return nil
}

func (c *PriceCache) RaiseTo(ctx context.Context, listingID string, price decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	point, ok := c.prices[listingID]
	if !ok || price.GreaterThan(point.Price) {
		point.Price = price
		c.prices[listingID] = point
	}
	return nil
}

func (c *PriceCache) Get(ctx context.Context, listingID string) (*domain.PricePoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	point, ok := c.prices[listingID]
	if !ok {
		return nil, nil
	}
	clone := point
	return &clone, nil
}

func (c *PriceCache) Remove(ctx context.Context, listingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.prices, listingID)
	return nil
}

// EventBus is an in-process publisher/subscriber pair.
type EventBus struct {
	mu       sync.RWMutex
	handlers []domain.EventHandler
	events   []*domain.Event
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Publish(ctx context.Context, event *domain.Event) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	handlers := append([]domain.EventHandler(nil), b.handlers...)
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(event) // fire-and-forget, errors are the handler's problem
	}
	return nil
}

func (b *EventBus) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

// Published returns a snapshot of everything published so far.
func (b *EventBus) Published() []*domain.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*domain.Event(nil), b.events...)
}

// AssetStore keeps raw bytes in a map.
type AssetStore struct {
	mu     sync.Mutex
	assets map[string][]byte

	// FailStore makes the next Store call fail, for fail-closed tests.
	FailStore bool
	// FailRelease makes Release fail, for fail-open tests.
	FailRelease bool
}

func NewAssetStore() *AssetStore {
	return &AssetStore{assets: make(map[string][]byte)}
}

func (s *AssetStore) Store(ctx context.Context, raw []byte, contentType string) (*domain.StoredAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailStore {
		return nil, fmt.Errorf("asset store unavailable")
	}
	key := uuid.NewString()
	s.assets[key] = raw
	return &domain.StoredAsset{
		Reference:  "memory://" + key,
		ExternalID: key,
	}, nil
}

func (s *AssetStore) Release(ctx context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailRelease {
		return fmt.Errorf("asset store unavailable")
	}
	delete(s.assets, externalID)
	return nil
}

func (s *AssetStore) Has(externalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.assets[externalID]
	return ok
}

// LeaderElection always elects the caller. The memory driver runs a single
// instance by definition.
type LeaderElection struct{}

func (LeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return true, nil
}

func (LeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return true, nil
}

func (LeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	return nil
}
