package mocks

import (
	"context"
	"errors"

	"github.com/godilite/catsurvey/internal/repository/models"
	"github.com/godilite/catsurvey/internal/service"
)

// MockRunService is a function-field mock of the run trigger.
type MockRunService struct {
	RunOnceFunc func(ctx context.Context) (service.RunReport, error)
}

func (m *MockRunService) RunOnce(ctx context.Context) (service.RunReport, error) {
	if m.RunOnceFunc != nil {
		return m.RunOnceFunc(ctx)
	}
	return service.RunReport{}, errors.New("RunOnceFunc not implemented")
}

// MockConfigService is a function-field mock of the category config editor.
type MockConfigService struct {
	GetConfigFunc    func(ctx context.Context, categoryID int64) (models.CategoryConfig, error)
	ListConfigsFunc  func(ctx context.Context) ([]models.CategoryConfig, error)
	UpdateConfigFunc func(ctx context.Context, upd service.ConfigUpdate) (models.CategoryConfig, error)
}

func (m *MockConfigService) GetConfig(ctx context.Context, categoryID int64) (models.CategoryConfig, error) {
	if m.GetConfigFunc != nil {
		return m.GetConfigFunc(ctx, categoryID)
	}
	return models.CategoryConfig{}, errors.New("GetConfigFunc not implemented")
}

func (m *MockConfigService) ListConfigs(ctx context.Context) ([]models.CategoryConfig, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return nil, errors.New("ListConfigsFunc not implemented")
}

func (m *MockConfigService) UpdateConfig(ctx context.Context, upd service.ConfigUpdate) (models.CategoryConfig, error) {
	if m.UpdateConfigFunc != nil {
		return m.UpdateConfigFunc(ctx, upd)
	}
	return models.CategoryConfig{}, errors.New("UpdateConfigFunc not implemented")
}
