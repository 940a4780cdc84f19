package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/squeeze/internal/domain"
)

// Keys persisted per device.
const (
	KeyBusinessData        = "businessData"
	KeyReviewedBusinessIDs = "reviewedBusinessIds"
)

var ErrNotFound = errors.New("key not found")

// Store keeps JSON values per device and key.
type Store interface {
	GetRaw(ctx context.Context, deviceID, key string) ([]byte, error)
	PutRaw(ctx context.Context, deviceID, key string, value []byte) error
	Delete(ctx context.Context, deviceID, key string) error
}

// Get decodes the value stored under key into v. It returns ErrNotFound
// when nothing is stored.
func Get(ctx context.Context, s Store, deviceID, key string, v any) error {
	raw, err := s.GetRaw(ctx, deviceID, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func Put(ctx context.Context, s Store, deviceID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.PutRaw(ctx, deviceID, key, raw)
}

// Device binds a Store to one device and exposes the typed keys.
type Device struct {
	store Store
	id    string
}

func ForDevice(s Store, deviceID string) *Device {
	return &Device{store: s, id: deviceID}
}

func (d *Device) ID() string {
	return d.id
}

// LoadBusiness returns nil when the device never registered a business.
func (d *Device) LoadBusiness(ctx context.Context) (*domain.BusinessRegistration, error) {
	var reg domain.BusinessRegistration
	err := Get(ctx, d.store, d.id, KeyBusinessData, &reg)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (d *Device) SaveBusiness(ctx context.Context, reg domain.BusinessRegistration) error {
	return Put(ctx, d.store, d.id, KeyBusinessData, reg)
}

func (d *Device) LoadReviewedIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := Get(ctx, d.store, d.id, KeyReviewedBusinessIDs, &ids)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *Device) SaveReviewedIDs(ctx context.Context, ids []string) error {
	return Put(ctx, d.store, d.id, KeyReviewedBusinessIDs, ids)
}

// Memory is a Store for tests and the demo mode.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) GetRaw(_ context.Context, deviceID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[memoryKey(deviceID, key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) PutRaw(_ context.Context, deviceID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.values[memoryKey(deviceID, key)] = v
	return nil
}

func (m *Memory) Delete(_ context.Context, deviceID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, memoryKey(deviceID, key))
	return nil
}

func memoryKey(deviceID, key string) string {
	return deviceID + "\x00" + key
}
