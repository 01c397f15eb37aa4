package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/GrowlyX/refactorproject-web/internal/services"
)

// MockAppClient mocks the App-authenticated GitHub surface.
type MockAppClient struct {
	mock.Mock
}

func (m *MockAppClient) GetInstallation(ctx context.Context, installationID int64) (*services.Installation, error) {
	args := m.Called(ctx, installationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Installation), args.Error(1)
}

func (m *MockAppClient) ListInstallations(ctx context.Context) ([]*services.Installation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*services.Installation), args.Error(1)
}

func (m *MockAppClient) CreateInstallationToken(ctx context.Context, installationID int64) (*services.InstallationToken, error) {
	args := m.Called(ctx, installationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InstallationToken), args.Error(1)
}

func (m *MockAppClient) DeleteInstallation(ctx context.Context, installationID int64) error {
	args := m.Called(ctx, installationID)
	return args.Error(0)
}

// MockInstallationLister mocks the installation-scoped listing surface.
type MockInstallationLister struct {
	mock.Mock
}

func (m *MockInstallationLister) ListInstallationRepositories(ctx context.Context, installationID int64) ([]services.Repository, error) {
	args := m.Called(ctx, installationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.Repository), args.Error(1)
}

func (m *MockInstallationLister) ListOrganizationMembers(ctx context.Context, installationID int64, orgLogin string) ([]services.Member, error) {
	args := m.Called(ctx, installationID, orgLogin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.Member), args.Error(1)
}
