package ipindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/store"
)

// IndexedStore keeps an Index in step with the devices of the wrapped store.
// Device writes and the rebuild that follows them are serialised so that an
// older snapshot never replaces a newer one.
type IndexedStore struct {
	store.Store
	idx *Index

	writeMu sync.Mutex
}

// NewIndexedStore wraps s and builds the initial index from its devices.
func NewIndexedStore(ctx context.Context, s store.Store, idx *Index) (*IndexedStore, error) {
	is := &IndexedStore{Store: s, idx: idx}
	if err := is.refresh(ctx); err != nil {
		return nil, fmt.Errorf("build address index: %w", err)
	}
	return is, nil
}

// Index returns the maintained index.
func (s *IndexedStore) Index() *Index {
	return s.idx
}

func (s *IndexedStore) refresh(ctx context.Context) error {
	devices, err := s.Store.ListDevices(ctx)
	if err != nil {
		return err
	}
	s.idx.Rebuild(devices)
	return nil
}

func (s *IndexedStore) CreateDevice(ctx context.Context, in model.DeviceInput) (model.Device, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	d, err := s.Store.CreateDevice(ctx, in)
	if err != nil {
		return d, err
	}
	return d, s.refresh(ctx)
}

func (s *IndexedStore) UpdateDevice(ctx context.Context, id string, in model.DeviceInput) (model.Device, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	d, err := s.Store.UpdateDevice(ctx, id, in)
	if err != nil {
		return d, err
	}
	return d, s.refresh(ctx)
}

func (s *IndexedStore) DeleteDevice(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.Store.DeleteDevice(ctx, id); err != nil {
		return err
	}
	return s.refresh(ctx)
}
