package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gorm.io/gorm"
)

type ExpectedInput struct {
	ItemID   string  `json:"item_id" validate:"required"`
	Quantity float64 `json:"quantity"`
}

type CreateRunInput struct {
	ConsecutiveNumber int
	Site              string
	Category          string
	StartDate         time.Time
	Expected          []ExpectedInput
	Confirmed         bool
	CreatedBy         string
}

type ConsecutiveCheck struct {
	Site              string `json:"site"`
	ConsecutiveNumber int    `json:"consecutive_number"`
	Available         bool   `json:"available"`
}

// RetryPolicy bounds the consecutive availability check.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

type InventoryRunService struct {
	runs  RunStore
	retry RetryPolicy
	log   *zap.Logger
	now   func() time.Time
}

func NewInventoryRunService(runs RunStore, retry RetryPolicy, log *zap.Logger) *InventoryRunService {
	if retry.Attempts <= 0 {
		retry.Attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryRunService{runs: runs, retry: retry, log: log, now: time.Now}
}

// CheckConsecutive reports whether the number is free at the site. It is advisory;
// the unique index decides at insert time.
func (s *InventoryRunService) CheckConsecutive(ctx context.Context, site string, consecutive int) (*ConsecutiveCheck, error) {
	site = strings.TrimSpace(site)
	if site == "" {
		return nil, invalid("site", "must not be blank")
	}
	if consecutive <= 0 {
		return nil, invalid("consecutive_number", "must be positive")
	}

	var lastErr error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		exists, err := s.runs.ConsecutiveExists(ctx, site, consecutive)
		if err == nil {
			return &ConsecutiveCheck{Site: site, ConsecutiveNumber: consecutive, Available: !exists}, nil
		}
		lastErr = err
		s.log.Warn("consecutive check failed",
			zap.String("site", site),
			zap.Int("consecutive", consecutive),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == s.retry.Attempts || s.retry.Backoff <= 0 {
			continue
		}
		wait := s.retry.Backoff*time.Duration(attempt) + time.Duration(rand.Int63n(int64(s.retry.Backoff)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("check consecutive %d at %s: %w", consecutive, site, lastErr)
}

// Create opens a run with its theoretical snapshot. When the availability check
// cannot be completed the caller must confirm the number explicitly.
func (s *InventoryRunService) Create(ctx context.Context, in CreateRunInput) (*models.InventoryRun, error) {
	site := strings.TrimSpace(in.Site)
	if in.ConsecutiveNumber <= 0 {
		return nil, invalid("consecutive_number", "must be positive")
	}
	if site == "" {
		return nil, invalid("site", "must not be blank")
	}
	if len(in.Expected) == 0 {
		return nil, invalid("expected", "at least one expected quantity is required")
	}
	expected := make([]models.ExpectedQuantity, 0, len(in.Expected))
	seen := make(map[string]struct{}, len(in.Expected))
	for i, e := range in.Expected {
		itemID := strings.TrimSpace(e.ItemID)
		if itemID == "" {
			return nil, invalid(fmt.Sprintf("expected[%d].item_id", i), "must not be blank")
		}
		if math.IsNaN(e.Quantity) || math.IsInf(e.Quantity, 0) {
			return nil, invalid(fmt.Sprintf("expected[%d].quantity", i), "must be a finite number")
		}
		if _, dup := seen[itemID]; dup {
			return nil, invalid(fmt.Sprintf("expected[%d].item_id", i), "item %s is listed twice", itemID)
		}
		seen[itemID] = struct{}{}
		expected = append(expected, models.ExpectedQuantity{
			ConsecutiveNumber: in.ConsecutiveNumber,
			Site:              site,
			ItemID:            itemID,
			Quantity:          e.Quantity,
		})
	}

	check, err := s.CheckConsecutive(ctx, site, in.ConsecutiveNumber)
	switch {
	case err != nil && !in.Confirmed:
		return nil, fmt.Errorf("%w: %v", ErrConfirmationRequired, err)
	case err != nil:
		s.log.Warn("creating run without consecutive check",
			zap.String("site", site),
			zap.Int("consecutive", in.ConsecutiveNumber),
			zap.Error(err))
	case !check.Available:
		return nil, conflict("consecutive %d is already used at %s", in.ConsecutiveNumber, site)
	}

	start := in.StartDate
	if start.IsZero() {
		start = s.now()
	}
	run := &models.InventoryRun{
		ConsecutiveNumber: in.ConsecutiveNumber,
		Site:              site,
		Category:          strings.TrimSpace(in.Category),
		StartDate:         start,
		State:             models.RunStateActive,
		ApprovalState:     models.ApprovalPending,
		CreatedBy:         strings.TrimSpace(in.CreatedBy),
	}
	if err := s.runs.CreateRun(ctx, run, expected); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("consecutive %d is already used at %s", in.ConsecutiveNumber, site)
		}
		return nil, fmt.Errorf("create run: %w", err)
	}
	s.log.Info("inventory run created",
		zap.String("run_id", run.ID.String()),
		zap.Int("consecutive", run.ConsecutiveNumber),
		zap.String("site", site),
		zap.Int("expected_items", len(expected)))
	return run, nil
}

func (s *InventoryRunService) Get(ctx context.Context, id types.SnowflakeID) (*models.InventoryRun, error) {
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return nil, notFound("inventory run", id)
	}
	return run, nil
}

func (s *InventoryRunService) List(ctx context.Context, filter RunFilter) ([]models.InventoryRun, error) {
	return s.runs.ListRuns(ctx, filter)
}

// Finalize closes the run to new zones and count events.
func (s *InventoryRunService) Finalize(ctx context.Context, id types.SnowflakeID) (*models.InventoryRun, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.runs.FinalizeRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("finalize run: %w", err)
	}
	if !ok {
		return nil, conflict("inventory run %s is %s", run.ID, run.State)
	}
	s.log.Info("inventory run finalized", zap.String("run_id", run.ID.String()))
	return s.Get(ctx, run.ID)
}

// Review records the administrator decision on a finalized run.
func (s *InventoryRunService) Review(ctx context.Context, id types.SnowflakeID, decision, reviewer string) (*models.InventoryRun, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return nil, invalid("reviewer_id", "must not be blank")
	}
	var state string
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case DecisionApprove, models.ApprovalApproved:
		state = models.ApprovalApproved
	case DecisionReject, models.ApprovalRejected:
		state = models.ApprovalRejected
	default:
		return nil, invalid("decision", "must be %s or %s", DecisionApprove, DecisionReject)
	}
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.runs.ReviewRun(ctx, run.ID, state, reviewer, s.now())
	if err != nil {
		return nil, fmt.Errorf("review run: %w", err)
	}
	if !ok {
		return nil, conflict("inventory run %s is not awaiting review (state %s, approval %s)", run.ID, run.State, run.ApprovalState)
	}
	s.log.Info("inventory run reviewed", zap.String("run_id", run.ID.String()), zap.String("decision", state))
	return s.Get(ctx, run.ID)
}

// Totals returns the materialized totals merged from approved zones.
func (s *InventoryRunService) Totals(ctx context.Context, id types.SnowflakeID) ([]models.RunTotal, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.runs.RunTotals(ctx, id)
}
