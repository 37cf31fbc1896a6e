package connector

import (
	"sync"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
)

// Store holds the loaded connectors, in load order
type Store struct {
	mu         sync.RWMutex
	connectors map[string]*Connector
	order      []string
	log        logger.Logger
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		connectors: make(map[string]*Connector),
		log:        logger.New("connector"),
	}
}

// LoadFiles loads every file and adds it to a new store. The first invalid
// file aborts loading.
func LoadFiles(paths ...string) (*Store, error) {
	s := NewStore()
	for _, path := range paths {
		c, err := Load(path)
		if err != nil {
			return nil, err
		}
		if err := s.Add(c); err != nil {
			return nil, err
		}
		s.log.Info().
			Str("connector", c.ID).
			Int("monitor_types", len(c.Monitors)).
			Int("sources", len(c.index)).
			Msg("Connector loaded")
	}

	return s, nil
}

// Add registers a connector
func (s *Store) Add(c *Connector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.connectors[c.ID]; ok {
		return errors.New().WithData(ErrDuplicateConnector, c.ID)
	}
	s.connectors[c.ID] = c
	s.order = append(s.order, c.ID)

	return nil
}

// Get returns a connector by id
func (s *Store) Get(id string) (*Connector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.connectors[id]
	return c, ok
}

// All returns every connector in load order
func (s *Store) All() []*Connector {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Connector, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.connectors[id])
	}

	return out
}

// Select returns the connectors with the given ids, or all of them when ids
// is empty
func (s *Store) Select(ids []string) ([]*Connector, error) {
	if len(ids) == 0 {
		return s.All(), nil
	}

	out := make([]*Connector, 0, len(ids))
	for _, id := range ids {
		c, ok := s.Get(id)
		if !ok {
			return nil, errors.New().WithData(ErrUnknownConnector, id)
		}
		out = append(out, c)
	}

	return out, nil
}
