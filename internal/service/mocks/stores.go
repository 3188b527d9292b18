package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/catsurvey/internal/repository/models"
)

// MockConfigStore is a function-field mock of the config stores used by the service layer.
type MockConfigStore struct {
	ListActiveConfigsFunc func(ctx context.Context) ([]models.CategoryConfig, error)
	UpdateWatermarkFunc   func(ctx context.Context, categoryID int64, watermark time.Time) error
	ListConfigsFunc       func(ctx context.Context) ([]models.CategoryConfig, error)
	GetConfigFunc         func(ctx context.Context, categoryID int64) (models.CategoryConfig, error)
	EnsureConfigFunc      func(ctx context.Context, categoryID int64) (bool, error)
	SaveConfigFunc        func(ctx context.Context, cfg models.CategoryConfig, withWatermark bool) error
}

func (m *MockConfigStore) ListActiveConfigs(ctx context.Context) ([]models.CategoryConfig, error) {
	if m.ListActiveConfigsFunc != nil {
		return m.ListActiveConfigsFunc(ctx)
	}
	return nil, errors.New("ListActiveConfigsFunc not implemented")
}

func (m *MockConfigStore) UpdateWatermark(ctx context.Context, categoryID int64, watermark time.Time) error {
	if m.UpdateWatermarkFunc != nil {
		return m.UpdateWatermarkFunc(ctx, categoryID, watermark)
	}
	return errors.New("UpdateWatermarkFunc not implemented")
}

func (m *MockConfigStore) ListConfigs(ctx context.Context) ([]models.CategoryConfig, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return nil, errors.New("ListConfigsFunc not implemented")
}

func (m *MockConfigStore) GetConfig(ctx context.Context, categoryID int64) (models.CategoryConfig, error) {
	if m.GetConfigFunc != nil {
		return m.GetConfigFunc(ctx, categoryID)
	}
	return models.CategoryConfig{}, errors.New("GetConfigFunc not implemented")
}

func (m *MockConfigStore) EnsureConfig(ctx context.Context, categoryID int64) (bool, error) {
	if m.EnsureConfigFunc != nil {
		return m.EnsureConfigFunc(ctx, categoryID)
	}
	return false, errors.New("EnsureConfigFunc not implemented")
}

func (m *MockConfigStore) SaveConfig(ctx context.Context, cfg models.CategoryConfig, withWatermark bool) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, cfg, withWatermark)
	}
	return errors.New("SaveConfigFunc not implemented")
}

// MockTicketStore is a function-field mock of the TicketStore interface.
type MockTicketStore struct {
	ListEligibleTicketsFunc func(ctx context.Context, q models.TicketQuery) ([]models.ClosedTicket, error)
}

func (m *MockTicketStore) ListEligibleTickets(ctx context.Context, q models.TicketQuery) ([]models.ClosedTicket, error) {
	if m.ListEligibleTicketsFunc != nil {
		return m.ListEligibleTicketsFunc(ctx, q)
	}
	return nil, errors.New("ListEligibleTicketsFunc not implemented")
}

// MockSurveyStore is a function-field mock of the SurveyStore interface.
type MockSurveyStore struct {
	CreateSurveyFunc func(ctx context.Context, rec models.SurveyRecord) (bool, error)
}

func (m *MockSurveyStore) CreateSurvey(ctx context.Context, rec models.SurveyRecord) (bool, error) {
	if m.CreateSurveyFunc != nil {
		return m.CreateSurveyFunc(ctx, rec)
	}
	return false, errors.New("CreateSurveyFunc not implemented")
}
