package sync

import (
	"context"
	"errors"
	"strings"

	"github.com/paytally/paysync/internal/model"
)

// mockLocal implements LocalStore with canned records and optional failure
// injection for ApplyRemote.
type mockLocal struct {
	records  []model.Leave
	loadErr  error
	applied  []model.Leave
	applyErr func(l model.Leave) error
}

func (m *mockLocal) LoadAllForSync(context.Context) ([]model.Leave, error) {
	return m.records, m.loadErr
}

func (m *mockLocal) ApplyRemote(_ context.Context, l model.Leave) error {
	if m.applyErr != nil {
		if err := m.applyErr(l); err != nil {
			return err
		}
	}
	m.applied = append(m.applied, l)
	return nil
}

// mockRemote implements RemoteTarget recording SaveBucket calls and serving
// FetchAll from a canned slice. failBuckets lists bucket IDs whose upload
// must fail.
type mockRemote struct {
	saved       map[string][]model.Leave
	failBuckets []string
	fetchAll    []model.Leave
	fetchErr    error
}

func newMockRemote() *mockRemote {
	return &mockRemote{saved: make(map[string][]model.Leave)}
}

func (m *mockRemote) SaveBucket(_ context.Context, bucket model.Bucket, records []model.Leave) error {
	for _, id := range m.failBuckets {
		if id == bucket.ID() {
			return errors.New("injected bucket failure")
		}
	}
	m.saved[bucket.ID()] = records
	return nil
}

func (m *mockRemote) FetchAll(context.Context) ([]model.Leave, error) {
	return m.fetchAll, m.fetchErr
}

// mockEmployeeLocal and mockEmployeeRemote mirror the leave mocks for the
// non-bucketed employee entity.
type mockEmployeeLocal struct {
	records []model.Employee
}

func (m *mockEmployeeLocal) LoadAllForSync(context.Context) ([]model.Employee, error) {
	return m.records, nil
}

func (m *mockEmployeeLocal) ApplyRemote(context.Context, model.Employee) error { return nil }

type mockEmployeeRemote struct {
	saved map[string]model.Employee
}

func (m *mockEmployeeRemote) SaveBucket(_ context.Context, _ model.Bucket, records []model.Employee) error {
	for _, e := range records {
		m.saved[e.ID] = e
	}
	return nil
}

func (m *mockEmployeeRemote) FetchAll(context.Context) ([]model.Employee, error) { return nil, nil }

// progressRecorder captures narration for assertions.
type progressRecorder struct {
	messages []string
}

func (p *progressRecorder) fn() Progress {
	return func(msg string) { p.messages = append(p.messages, msg) }
}

func (p *progressRecorder) contains(substr string) bool {
	for _, m := range p.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
