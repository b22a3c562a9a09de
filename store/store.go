package store

import (
	"context"

	"github.com/pkg/errors"
)

// Store provides access to stored memories.
type Store struct {
	driver     Driver
	dimensions int
}

// New creates a new instance of Store. Vectors must have exactly dimensions components.
func New(driver Driver, dimensions int) *Store {
	return &Store{
		driver:     driver,
		dimensions: dimensions,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) checkDimensions(vector []float32) error {
	if len(vector) != s.dimensions {
		return errors.Errorf("embedding dimension mismatch (expected %d, got %d)", s.dimensions, len(vector))
	}
	return nil
}

func (s *Store) InsertMemory(ctx context.Context, m *Memory) (int64, error) {
	if err := s.checkDimensions(m.Embedding); err != nil {
		return 0, err
	}
	return s.driver.InsertMemory(ctx, m)
}

// SearchMemory returns the k best matches. k <= 0 yields no matches and no backend call.
func (s *Store) SearchMemory(ctx context.Context, find *FindMemory) ([]*Match, error) {
	if find.K <= 0 {
		return []*Match{}, nil
	}
	if err := s.checkDimensions(find.QueryEmbedding); err != nil {
		return nil, err
	}
	return s.driver.SearchMemory(ctx, find)
}
