// Package testutil provides centralized test mocks, fixtures, and helpers.
// Test files should import mocks from here instead of defining their own.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vagledaren/vagledaren/internal/generate"
	"github.com/vagledaren/vagledaren/internal/registry"
	"github.com/vagledaren/vagledaren/internal/storage"
)

// MockRegistryAPI implements registry.API for tests.
type MockRegistryAPI struct {
	mock.Mock
}

func (m *MockRegistryAPI) ListSummaries(ctx context.Context) ([]registry.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]registry.Summary), args.Error(1)
}

func (m *MockRegistryAPI) GetDetail(ctx context.Context, code string) (*registry.SchoolRecord, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.SchoolRecord), args.Error(1)
}

func (m *MockRegistryAPI) GetPrograms(ctx context.Context) ([]registry.ProgramRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]registry.ProgramRecord), args.Error(1)
}

// MockGenerationClient implements generate.Client for tests.
type MockGenerationClient struct {
	mock.Mock
}

func (m *MockGenerationClient) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockGenerationClient) CompleteStream(ctx context.Context, prompt string) (*generate.Stream, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generate.Stream), args.Error(1)
}

// MockSnapshotStore implements catalog.SnapshotStore for tests.
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) SaveSnapshot(snap storage.Snapshot) error {
	args := m.Called(snap)
	return args.Error(0)
}

func (m *MockSnapshotStore) LatestSnapshot(kind string) (*storage.Snapshot, error) {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) DeleteSnapshots(kind string) error {
	args := m.Called(kind)
	return args.Error(0)
}
