package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ManuelReschke/GridFox/app/models"
)

// MemoryStore keeps all records in process memory. It backs the billing and
// controller tests and satisfies every repository interface.
type MemoryStore struct {
	mu            sync.RWMutex
	grids         map[string]models.Grid
	users         map[string]models.User // keyed by Stripe customer id
	subscriptions map[string]models.Subscription
	events        map[string]models.WebhookEvent // keyed by provider + event id
	nextEventID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grids:         make(map[string]models.Grid),
		users:         make(map[string]models.User),
		subscriptions: make(map[string]models.Subscription),
		events:        make(map[string]models.WebhookEvent),
	}
}

// NewMemoryRepositories wires a fresh MemoryStore into every repository slot.
func NewMemoryRepositories() (*Repositories, *MemoryStore) {
	s := NewMemoryStore()
	return &Repositories{
		Grid:         memoryGrids{s},
		User:         memoryUsers{s},
		Subscription: memorySubscriptions{s},
		WebhookEvent: memoryWebhookEvents{s},
	}, s
}

// PutGrid stores a copy of grid, replacing any existing row.
func (s *MemoryStore) PutGrid(grid models.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[grid.ID] = grid
}

// Grid returns a copy of the stored grid.
func (s *MemoryStore) Grid(id string) (models.Grid, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grids[id]
	return g, ok
}

func (s *MemoryStore) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.StripeCustomerID] = user
}

func (s *MemoryStore) User(customerID string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[customerID]
	return u, ok
}

func (s *MemoryStore) PutSubscription(sub models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = sub
}

func (s *MemoryStore) Subscription(id string) (models.Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[id]
	return sub, ok
}

// UserCount returns the number of stored users.
func (s *MemoryStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

type memoryGrids struct{ s *MemoryStore }

func (m memoryGrids) Create(ctx context.Context, grid *models.Grid) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := time.Now()
	grid.CreatedAt, grid.UpdatedAt = now, now
	m.s.grids[grid.ID] = *grid
	return nil
}

func (m memoryGrids) GetByID(ctx context.Context, id string) (*models.Grid, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	g, ok := m.s.Grid(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (m memoryGrids) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Grid, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var found *models.Grid
	for _, g := range m.s.grids {
		if g.SubscriptionID == nil || *g.SubscriptionID != subscriptionID {
			continue
		}
		if found == nil || g.UpdatedAt.After(found.UpdatedAt) {
			g := g
			found = &g
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m memoryGrids) Reserve(ctx context.Context, grid *models.Grid) error {
	return m.update(ctx, grid.ID, func(stored *models.Grid) {
		stored.Status = grid.Status
		stored.CustomerID = grid.CustomerID
		stored.SubscriptionID = grid.SubscriptionID
		stored.Title = grid.Title
		stored.Description = grid.Description
		stored.ImageURL = grid.ImageURL
		stored.ExternalURL = grid.ExternalURL
		stored.Content = grid.Content
		stored.StartDate = grid.StartDate
		stored.EndDate = grid.EndDate
	})
}

func (m memoryGrids) UpdateBilling(ctx context.Context, grid *models.Grid) error {
	return m.update(ctx, grid.ID, func(stored *models.Grid) {
		stored.Status = grid.Status
		stored.SubscriptionID = grid.SubscriptionID
		stored.CustomerID = grid.CustomerID
		stored.StartDate = grid.StartDate
		stored.EndDate = grid.EndDate
	})
}

func (m memoryGrids) UpdateContentForCustomer(ctx context.Context, id, customerID string, content models.GridContent) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	if content.IsEmpty() {
		return 0, nil
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	g, ok := m.s.grids[id]
	if !ok || !g.OwnedBy(customerID) {
		return 0, nil
	}
	g.Apply(content)
	g.UpdatedAt = time.Now()
	m.s.grids[id] = g
	return 1, nil
}

func (m memoryGrids) update(ctx context.Context, id string, fn func(*models.Grid)) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	g, ok := m.s.grids[id]
	if !ok {
		return ErrNotFound
	}
	fn(&g)
	g.UpdatedAt = time.Now()
	m.s.grids[id] = g
	return nil
}

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) GetByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	u, ok := m.s.User(customerID)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m memoryUsers) FindOrCreateByCustomerID(ctx context.Context, customerID, email, status string) (*models.User, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := time.Now()
	u, ok := m.s.users[customerID]
	if !ok {
		u = *models.NewUser(customerID, email, status)
		u.CreatedAt = now
	}
	u.SubscriptionStatus = status
	u.UpdatedAt = now
	m.s.users[customerID] = u
	return &u, nil
}

type memorySubscriptions struct{ s *MemoryStore }

func (m memorySubscriptions) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	sub, ok := m.s.Subscription(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (m memorySubscriptions) Upsert(ctx context.Context, sub *models.Subscription) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := time.Now()
	stored, ok := m.s.subscriptions[sub.ID]
	if !ok {
		stored = models.Subscription{ID: sub.ID, CreatedAt: now}
	}
	stored.Status = sub.Status
	if sub.CustomerID != "" {
		stored.CustomerID = sub.CustomerID
	}
	if sub.CurrentPeriodEnd != nil {
		stored.CurrentPeriodEnd = sub.CurrentPeriodEnd
	}
	if sub.GridID != nil {
		stored.GridID = sub.GridID
	}
	stored.UpdatedAt = now
	m.s.subscriptions[sub.ID] = stored
	*sub = stored
	return nil
}

type memoryWebhookEvents struct{ s *MemoryStore }

func (m memoryWebhookEvents) CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if err := checkCtx(ctx); err != nil {
		return false, nil, err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := event.Provider + ":" + event.ProviderEventID
	if stored, ok := m.s.events[key]; ok {
		return false, &stored, nil
	}
	m.s.nextEventID++
	stored := *event
	stored.ID = m.s.nextEventID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.s.events[key] = stored
	event.ID = stored.ID
	return true, &stored, nil
}

func (m memoryWebhookEvents) MarkProcessed(ctx context.Context, id uint, processingError string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for key, e := range m.s.events {
		if e.ID != id {
			continue
		}
		now := time.Now()
		e.ProcessedAt = &now
		e.ProcessingError = processingError
		e.UpdatedAt = now
		m.s.events[key] = e
		return nil
	}
	return ErrNotFound
}
