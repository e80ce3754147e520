package location

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domerrors "github.com/garyellow/line-foodfinder/internal/errors"
	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/metrics"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	KeyField string
	Metrics  *metrics.Metrics // optional
	Logger   *logger.Logger   // optional
}

// Store holds the location list. The list is loaded from its Source on
// first use and kept for the process lifetime once a load succeeds. A
// failed load is retried on the next call.
//
// Concurrent first uses share one load. mu guards only the published list,
// so Count and Loaded never wait on a slow Source.
type Store struct {
	src      Source
	keyField string
	metrics  *metrics.Metrics
	logger   *logger.Logger

	flight singleflight.Group

	mu     sync.Mutex
	points []Point
	loaded bool

	intN func(n int) int
}

// NewStore creates a store reading from src. Nothing is loaded until Warm,
// Sample, or Count is called.
func NewStore(src Source, cfg StoreConfig) *Store {
	return &Store{
		src:      src,
		keyField: cfg.KeyField,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		intN:     rand.IntN,
	}
}

// NewStaticStore returns an already loaded store. Used by tests and tools.
func NewStaticStore(points []Point) *Store {
	return &Store{points: points, loaded: true, intN: rand.IntN}
}

// Warm loads the list if it is not loaded yet.
func (s *Store) Warm(ctx context.Context) error {
	_, err := s.get(ctx)
	return err
}

// Sample returns one point chosen uniformly at random.
func (s *Store) Sample(ctx context.Context) (Point, error) {
	points, err := s.get(ctx)
	if err != nil {
		return Point{}, err
	}
	if len(points) == 0 {
		return Point{}, domerrors.ErrEmptyStore
	}
	return points[s.intN(len(points))], nil
}

// Count returns the number of loaded points, or 0 before a successful load.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

// Loaded reports whether a load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Store) cached() ([]Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points, s.loaded
}

// get returns the list, loading it if needed. The load runs under the
// context of the caller that started it.
func (s *Store) get(ctx context.Context) ([]Point, error) {
	if points, ok := s.cached(); ok {
		return points, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domerrors.ErrDataUnavailable, err)
	}

	v, err, shared := s.flight.Do("load", func() (any, error) {
		// A flight that finished between cached() and Do already published.
		if points, ok := s.cached(); ok {
			return points, nil
		}
		return s.loadAndPublish(ctx)
	})
	if shared && s.metrics != nil {
		s.metrics.RecordSingleflightDedup("locations")
	}
	if err != nil {
		return nil, err
	}
	return v.([]Point), nil
}

func (s *Store) loadAndPublish(ctx context.Context) ([]Point, error) {
	start := time.Now()
	points, err := s.load(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLocationLoad("error", 0)
		}
		if s.logger != nil {
			s.logger.WithError(err).WithField("source", s.src.Name()).Error("Failed to load location list")
		}
		return nil, err
	}

	s.mu.Lock()
	s.points = points
	s.loaded = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordLocationLoad("success", len(points))
	}
	if s.logger != nil {
		s.logger.WithFields(map[string]any{
			"source":   s.src.Name(),
			"points":   len(points),
			"duration": time.Since(start).String(),
		}).Info("Location list loaded")
	}
	return points, nil
}

func (s *Store) load(ctx context.Context) ([]Point, error) {
	rc, err := s.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return Parse(rc, s.keyField)
}
