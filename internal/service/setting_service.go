package service

import (
	"context"
	"errors"
	"fmt"

	"ideaportal/internal/model"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultHighValueThreshold applies when the setting is missing or unusable
var DefaultHighValueThreshold = decimal.NewFromInt(20000)

// ThresholdProvider supplies the saving cost at which ideas switch to the HIGH_VALUE track
type ThresholdProvider interface {
	HighValueThreshold(ctx context.Context) decimal.Decimal
}

// --- DTOs ---

type ThresholdResponse struct {
	Key       string          `json:"key"`
	Value     decimal.Decimal `json:"value"`
	IsDefault bool            `json:"is_default"`
}

type UpdateThresholdRequest struct {
	Value string `json:"value" binding:"required"`
}

// --- Interface ---

type SettingService interface {
	ThresholdProvider
	GetHighValueThreshold(ctx context.Context) ThresholdResponse
	UpdateHighValueThreshold(ctx context.Context, actorID uuid.UUID, raw string) (ThresholdResponse, error)
}

type settingService struct {
	repo  repository.SettingRepository
	audit auditWriter
	log   zerolog.Logger
}

// NewSettingService wires the settings store. audit may be nil.
func NewSettingService(repo repository.SettingRepository, audit repository.AuditRepository, log zerolog.Logger) SettingService {
	return &settingService{repo: repo, audit: auditWriter{repo: audit, log: log}, log: log}
}

// --- Implementation ---

// HighValueThreshold reads the setting fresh on every call and never fails
func (s *settingService) HighValueThreshold(ctx context.Context) decimal.Decimal {
	value, _ := s.readThreshold(ctx)
	return value
}

func (s *settingService) GetHighValueThreshold(ctx context.Context) ThresholdResponse {
	value, isDefault := s.readThreshold(ctx)
	return ThresholdResponse{Key: model.SettingHighValueThreshold, Value: value, IsDefault: isDefault}
}

// UpdateHighValueThreshold affects ideas submitted afterwards only. actorID is uuid.Nil for system changes.
func (s *settingService) UpdateHighValueThreshold(ctx context.Context, actorID uuid.UUID, raw string) (ThresholdResponse, error) {
	value, err := parseThreshold(raw)
	if err != nil {
		return ThresholdResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	previous, _ := s.readThreshold(ctx)
	if err := s.repo.Set(ctx, model.SettingHighValueThreshold, value.String()); err != nil {
		return ThresholdResponse{}, fmt.Errorf("failed to save threshold: %w", err)
	}
	s.audit.write(ctx, actorID, model.ActionUpdateThreshold, model.SettingHighValueThreshold, map[string]string{
		"previous": previous.String(),
		"value":    value.String(),
	})

	s.log.Info().Str("value", value.String()).Str("previous", previous.String()).Msg("high value threshold updated")
	return ThresholdResponse{Key: model.SettingHighValueThreshold, Value: value}, nil
}

// --- Helpers ---

func (s *settingService) readThreshold(ctx context.Context) (decimal.Decimal, bool) {
	setting, err := s.repo.Get(ctx, model.SettingHighValueThreshold)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn().Err(err).Msg("could not read high value threshold, using default")
		}
		return DefaultHighValueThreshold, true
	}

	value, err := parseThreshold(setting.Value)
	if err != nil {
		s.log.Warn().Err(err).Str("raw", setting.Value).Msg("unusable high value threshold, using default")
		return DefaultHighValueThreshold, true
	}
	return value, false
}

func parseThreshold(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("threshold %q is not a number", raw)
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("threshold must be positive, got %s", value)
	}
	return value, nil
}
