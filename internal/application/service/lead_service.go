package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osusproperties/brokerage-core/internal/application/dispatcher"
	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/domain/event"
	"github.com/osusproperties/brokerage-core/pkg/utils"
)

// LeadInput carries the fields of a new lead
type LeadInput struct {
	Name         string          `json:"name" binding:"required"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Budget       decimal.Decimal `json:"budget"`
	PropertyType string          `json:"property_type"`
	Source       string          `json:"source"`
	Notes        string          `json:"notes"`
}

// LeadService captures leads and scores them
type LeadService interface {
	CreateLead(ctx context.Context, in LeadInput) (*entity.Lead, error)
	GetLead(ctx context.Context, id int64) (*entity.Lead, error)
	ListLeads(ctx context.Context, limit, offset int) ([]*entity.Lead, error)
	ScoreLead(ctx context.Context, id int64) (*entity.Lead, error)
	// ScorePending scores up to limit unscored leads and returns how many succeeded
	ScorePending(ctx context.Context, limit int) (int, error)
}

type leadServiceImpl struct {
	leadRepo   port.LeadRepository
	scorer     port.LeadScorer
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewLeadService creates a new LeadService. scorer and d may be nil.
func NewLeadService(leadRepo port.LeadRepository, scorer port.LeadScorer, d dispatcher.Dispatcher, logger Logger) LeadService {
	return &leadServiceImpl{
		leadRepo:   leadRepo,
		scorer:     scorer,
		dispatcher: d,
		logger:     orNop(logger),
	}
}

func (s *leadServiceImpl) CreateLead(ctx context.Context, in LeadInput) (*entity.Lead, error) {
	name := utils.SanitizeString(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidLead)
	}
	if in.Email != "" {
		if err := utils.ValidateEmail(in.Email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLead, err)
		}
	}
	if in.Phone != "" {
		if err := utils.ValidatePhone(in.Phone); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLead, err)
		}
	}
	if err := utils.ValidateAmount("budget", in.Budget); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLead, err)
	}

	lead := &entity.Lead{
		Name:         name,
		Email:        in.Email,
		Phone:        in.Phone,
		Budget:       in.Budget,
		PropertyType: utils.SanitizeString(in.PropertyType),
		Source:       utils.SanitizeString(in.Source),
		Notes:        utils.SanitizeString(in.Notes),
	}
	if err := s.leadRepo.Create(ctx, lead); err != nil {
		s.logger.Error("Failed to create lead", "error", err)
		return nil, err
	}

	s.logger.Info("Lead created", "id", lead.ID, "source", lead.Source)
	return lead, nil
}

func (s *leadServiceImpl) GetLead(ctx context.Context, id int64) (*entity.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

func (s *leadServiceImpl) ListLeads(ctx context.Context, limit, offset int) ([]*entity.Lead, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.leadRepo.List(ctx, limit, offset)
}

// ScoreLead scores a lead, replacing any previous score
func (s *leadServiceImpl) ScoreLead(ctx context.Context, id int64) (*entity.Lead, error) {
	if s.scorer == nil {
		return nil, ErrScoringDisabled
	}
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.score(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (s *leadServiceImpl) ScorePending(ctx context.Context, limit int) (int, error) {
	if s.scorer == nil {
		return 0, ErrScoringDisabled
	}
	leads, err := s.leadRepo.ListUnscored(ctx, limit)
	if err != nil {
		return 0, err
	}

	scored := 0
	for _, lead := range leads {
		if ctx.Err() != nil {
			return scored, ctx.Err()
		}
		if err := s.score(ctx, lead); err != nil {
			s.logger.Error("Failed to score lead", "error", err, "lead_id", lead.ID)
			continue
		}
		scored++
	}
	return scored, nil
}

func (s *leadServiceImpl) score(ctx context.Context, lead *entity.Lead) error {
	result, err := s.scorer.ScoreLead(ctx, lead)
	if err != nil {
		return fmt.Errorf("score lead %d: %w", lead.ID, err)
	}

	score := clampScore(result.Score)
	now := time.Now()
	if err := s.leadRepo.UpdateScore(ctx, lead.ID, score, result.Reasoning, now); err != nil {
		return err
	}
	lead.Score, lead.Reasoning, lead.ScoredAt = &score, result.Reasoning, &now

	s.logger.Info("Lead scored", "lead_id", lead.ID, "score", score)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeLeadScored, lead.ID, lead.Name, map[string]interface{}{
			event.KeyScore: score,
		}))
	}
	return nil
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}
