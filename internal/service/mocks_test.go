package service

import (
	"context"
	"io"
	"log/slog"

	"newsletteradmin/internal/models"
	"newsletteradmin/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockNewsletterRepository mocks NewsletterRepository. Without funcs it
// serves from an in-memory map.
type MockNewsletterRepository struct {
	GetByIDFunc func(ctx context.Context, id int) (*models.Newsletter, error)
	CreateFunc  func(ctx context.Context, n *models.Newsletter) error
	UpdateFunc  func(ctx context.Context, n *models.Newsletter) error

	Stored map[int]models.Newsletter
	nextID int
	Calls  map[string]int
}

func NewMockNewsletterRepository(existing ...*models.Newsletter) *MockNewsletterRepository {
	m := &MockNewsletterRepository{
		Stored: make(map[int]models.Newsletter),
		nextID: 100,
		Calls:  make(map[string]int),
	}
	for _, n := range existing {
		m.Stored[n.ID] = *n
	}
	return m
}

func (m *MockNewsletterRepository) GetByID(ctx context.Context, id int) (*models.Newsletter, error) {
	m.Calls["GetByID"]++
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	n, ok := m.Stored[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (m *MockNewsletterRepository) Create(ctx context.Context, n *models.Newsletter) error {
	m.Calls["Create"]++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	m.nextID++
	n.ID = m.nextID
	m.Stored[n.ID] = *n
	return nil
}

func (m *MockNewsletterRepository) Update(ctx context.Context, n *models.Newsletter) error {
	m.Calls["Update"]++
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, n)
	}
	if _, ok := m.Stored[n.ID]; !ok {
		return repository.ErrNotFound
	}
	m.Stored[n.ID] = *n
	return nil
}

// MockSegmentRepository mocks SegmentRepository over a fixed list
type MockSegmentRepository struct {
	Segments        []*models.Segment
	ListErr         error
	ListedInstances []*int
}

func (m *MockSegmentRepository) ListForCatalog(ctx context.Context, instanceID *int) ([]*models.Segment, error) {
	m.ListedInstances = append(m.ListedInstances, instanceID)
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*models.Segment
	for _, s := range m.Segments {
		if instanceID == nil || (s.InstanceID != nil && *s.InstanceID == *instanceID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSegmentRepository) GetByID(ctx context.Context, id int) (*models.Segment, error) {
	for _, s := range m.Segments {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

// MockInstanceRepository mocks InstanceRepository with a settings map keyed
// by instance id
type MockInstanceRepository struct {
	Instances  map[int]*models.Instance
	Settings   map[int]string
	SettingErr error
	Calls      map[string]int
	LastID     int
}

func NewMockInstanceRepository(settings map[int]string) *MockInstanceRepository {
	return &MockInstanceRepository{Settings: settings, Calls: make(map[string]int)}
}

func (m *MockInstanceRepository) GetByID(ctx context.Context, id int) (*models.Instance, error) {
	m.Calls["GetByID"]++
	if inst, ok := m.Instances[id]; ok {
		return inst, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockInstanceRepository) GetConfigSetting(ctx context.Context, instanceID int, name string) (string, error) {
	m.Calls["GetConfigSetting"]++
	m.LastID = instanceID
	if m.SettingErr != nil {
		return "", m.SettingErr
	}
	v, ok := m.Settings[instanceID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

// MockSynchronizer returns a canned result and records what it was given
type MockSynchronizer struct {
	Result       SyncResult
	Calls        int
	LastInstance *int
	Seen         *models.Newsletter
}

func (m *MockSynchronizer) Sync(ctx context.Context, n *models.Newsletter, instanceID *int) SyncResult {
	m.Calls++
	m.LastInstance = instanceID
	copied := *n
	m.Seen = &copied
	return m.Result
}

// MockFaultPublisher records published faults
type MockFaultPublisher struct {
	PublishFunc func(ctx context.Context, fault *models.SyncFault) error
	Published   []*models.SyncFault
}

func (m *MockFaultPublisher) PublishFault(ctx context.Context, fault *models.SyncFault) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, fault); err != nil {
			return err
		}
	}
	m.Published = append(m.Published, fault)
	return nil
}
