// Package organizations maps organisations to the jurisdiction whose labour
// code governs them.
package organizations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

var (
	// ErrNotFound is returned when an organisation ID does not exist.
	ErrNotFound = errors.New("organization not found")

	// ErrAlreadyExists is returned when creating an organisation whose ID is
	// taken.
	ErrAlreadyExists = errors.New("organization already exists")

	// ErrInvalid is returned for organisations that fail validation.
	ErrInvalid = errors.New("invalid organization")
)

// Organization is a union local or employer registered with the service.
type Organization struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	Jurisdiction jurisdiction.Jurisdiction `json:"jurisdiction"`
	CreatedAt    time.Time                 `json:"createdAt"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
}

// Store persists organisations.
type Store interface {
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
}

// InMemoryStore implements Store with a map.
type InMemoryStore struct {
	orgs map[string]Organization
	mu   sync.RWMutex
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{orgs: make(map[string]Organization)}
}

// Create stores org and sets its timestamps.
func (s *InMemoryStore) Create(_ context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orgs[org.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, org.ID)
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	s.orgs[org.ID] = *org
	return nil
}

// Get returns an organisation by ID.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &org, nil
}

// List returns every organisation ordered by ID.
func (s *InMemoryStore) List(_ context.Context) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		o := org
		out = append(out, &o)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

// Directory resolves organisations to jurisdictions. Lookups are served from
// memory; misses go to the store and are remembered.
type Directory struct {
	store Store
	known map[string]jurisdiction.Jurisdiction
	mu    sync.RWMutex
}

// NewDirectory creates a directory over store.
func NewDirectory(store Store) *Directory {
	return &Directory{
		store: store,
		known: make(map[string]jurisdiction.Jurisdiction),
	}
}

// LoadAll warms the directory with every stored organisation.
func (d *Directory) LoadAll(ctx context.Context) (int, error) {
	orgs, err := d.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load organizations: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, org := range orgs {
		d.known[org.ID] = org.Jurisdiction
	}
	return len(orgs), nil
}

// Jurisdiction returns the jurisdiction of an organisation.
func (d *Directory) Jurisdiction(ctx context.Context, id string) (jurisdiction.Jurisdiction, error) {
	d.mu.RLock()
	j, ok := d.known[id]
	d.mu.RUnlock()
	if ok {
		return j, nil
	}

	org, err := d.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	d.known[id] = org.Jurisdiction
	d.mu.Unlock()
	return org.Jurisdiction, nil
}

// Register validates and stores a new organisation. An empty ID is assigned
// a random one and the jurisdiction code is normalised.
func (d *Directory) Register(ctx context.Context, org *Organization) error {
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	j, err := jurisdiction.Parse(string(org.Jurisdiction))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	org.Jurisdiction = j
	if org.ID == "" {
		org.ID = uuid.NewString()
	}

	if err := d.store.Create(ctx, org); err != nil {
		return err
	}

	d.mu.Lock()
	d.known[org.ID] = org.Jurisdiction
	d.mu.Unlock()
	return nil
}

// Get returns an organisation by ID.
func (d *Directory) Get(ctx context.Context, id string) (*Organization, error) {
	return d.store.Get(ctx, id)
}

// List returns every organisation.
func (d *Directory) List(ctx context.Context) ([]*Organization, error) {
	return d.store.List(ctx)
}
