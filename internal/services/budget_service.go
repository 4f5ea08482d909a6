package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// BudgetService manages budget periods: creation with overlap enforcement,
// spend tracking, and the auto-renewal sweep.
type BudgetService struct {
	store  *storage.Store
	events *amqp.Client
	now    func() time.Time
}

func NewBudgetService(store *storage.Store, events *amqp.Client) *BudgetService {
	return &BudgetService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// CreateBudgetParams carries the caller-controlled fields of a new budget.
type CreateBudgetParams struct {
	Category      string
	PlannedAmount decimal.Decimal
	StartDate     time.Time
	Frequency     string
	AutoRenew     bool
	Reminder      bool
}

func (s *BudgetService) CreateBudget(ctx context.Context, userID uuid.UUID, params CreateBudgetParams) (core.Budget, error) {
	category, err := core.ParseCategory(params.Category)
	if err != nil {
		return core.Budget{}, err
	}
	frequency, err := core.ParseFrequency(params.Frequency)
	if err != nil {
		return core.Budget{}, err
	}
	if !params.PlannedAmount.IsPositive() {
		return core.Budget{}, core.ErrInvalidAmount
	}
	if params.StartDate.IsZero() {
		return core.Budget{}, fmt.Errorf("start date cannot be zero")
	}

	start := core.DateOnly(params.StartDate)
	end := core.PeriodEnd(start, frequency)
	budget := core.Budget{
		ID:            uuid.New(),
		UserID:        userID,
		Category:      category,
		PlannedAmount: params.PlannedAmount,
		SpentAmount:   decimal.Zero,
		Reminder:      params.Reminder,
		StartDate:     start,
		EndDate:       &end,
		Frequency:     frequency,
		AutoRenew:     params.AutoRenew,
		CreatedAt:     s.now().UTC(),
	}

	err = s.store.Tx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return fmt.Errorf("load budget owner: %w", err)
		}
		if err := checkOverlap(ctx, q, userID, category, start, &end, uuid.Nil); err != nil {
			return err
		}
		return q.CreateBudget(ctx, budget)
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", budget.ID,
		"user_id", userID,
		"category", category,
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"))

	return budget, nil
}

// UpdateBudgetParams carries the mutable budget fields. Category and start
// date are immutable after creation to preserve transaction linkage and the
// non-overlap guarantee.
type UpdateBudgetParams struct {
	PlannedAmount decimal.Decimal
	Frequency     string
	AutoRenew     bool
	Reminder      bool
}

func (s *BudgetService) UpdateBudget(ctx context.Context, id, userID uuid.UUID, params UpdateBudgetParams) (core.Budget, error) {
	frequency, err := core.ParseFrequency(params.Frequency)
	if err != nil {
		return core.Budget{}, err
	}
	if !params.PlannedAmount.IsPositive() {
		return core.Budget{}, core.ErrInvalidAmount
	}

	var budget core.Budget
	err = s.store.Tx(ctx, func(q *storage.Queries) error {
		budget, err = q.GetBudgetForUser(ctx, id, userID)
		if err != nil {
			return err
		}

		budget.PlannedAmount = params.PlannedAmount
		budget.Reminder = params.Reminder
		budget.AutoRenew = params.AutoRenew
		if budget.Frequency != frequency {
			// End date always derives from the immutable start date.
			budget.Frequency = frequency
			end := core.PeriodEnd(budget.StartDate, frequency)
			budget.EndDate = &end
			if err := checkOverlap(ctx, q, userID, budget.Category, budget.StartDate, budget.EndDate, budget.ID); err != nil {
				return err
			}
		}
		return q.UpdateBudget(ctx, budget)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return budget, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, id, userID uuid.UUID) (core.Budget, error) {
	return s.store.Queries().GetBudgetForUser(ctx, id, userID)
}

func (s *BudgetService) ListBudgets(ctx context.Context, userID uuid.UUID) ([]core.Budget, error) {
	return s.store.Queries().ListBudgets(ctx, userID)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.Tx(ctx, func(q *storage.Queries) error {
		return q.DeleteBudget(ctx, id, userID)
	})
}

// RecordSpend adds an expense amount to a budget's spent total.
func (s *BudgetService) RecordSpend(ctx context.Context, budgetID uuid.UUID, amount decimal.Decimal) error {
	return s.store.Tx(ctx, func(q *storage.Queries) error {
		return recordSpend(ctx, q, budgetID, amount)
	})
}

// ReverseSpend removes a previously recorded expense amount.
func (s *BudgetService) ReverseSpend(ctx context.Context, budgetID uuid.UUID, amount decimal.Decimal) error {
	return s.store.Tx(ctx, func(q *storage.Queries) error {
		return reverseSpend(ctx, q, budgetID, amount)
	})
}

// RunAutoRenewalSweep spawns successor periods for every expired auto-renew
// budget. Each budget renews in its own store transaction so one failure
// never rolls back the others; failed budgets are retried on the next pass.
func (s *BudgetService) RunAutoRenewalSweep(ctx context.Context, now time.Time) (int, error) {
	budgets, err := s.store.Queries().ListRenewableBudgets(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list renewable budgets: %w", err)
	}

	slog.InfoContext(ctx, "Running budget auto-renewal sweep",
		"eligible", len(budgets),
		"sweep_time", now.Format("2006-01-02 15:04:05"))

	renewed := 0
	for _, budget := range budgets {
		successor, err := s.renewBudget(ctx, budget.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to renew budget",
				"budget_id", budget.ID,
				"user_id", budget.UserID,
				"error", err)
			continue
		}
		if successor == nil {
			continue // no longer eligible, someone else got there first
		}
		renewed++
		publish(ctx, s.events, amqp.NewEvent(amqp.EventBudgetRenewed,
			successor.ID, successor.UserID, successor.PlannedAmount.String()))
	}

	slog.InfoContext(ctx, "Budget auto-renewal sweep complete",
		"renewed", renewed,
		"eligible", len(budgets))

	return renewed, nil
}

// renewBudget performs one renewal in one transaction: validate the expired
// budget, insert the successor period and retire the old one. Returns nil
// without error when the budget stopped being eligible between the sweep
// query and the transaction.
func (s *BudgetService) renewBudget(ctx context.Context, id uuid.UUID, now time.Time) (*core.Budget, error) {
	var successor core.Budget
	renewed := false

	err := s.store.Tx(ctx, func(q *storage.Queries) error {
		budget, err := q.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		if !budget.Renewable(now) {
			return nil
		}
		if err := budget.Validate(); err != nil {
			return fmt.Errorf("budget not valid for renewal: %w", err)
		}
		if _, err := q.GetUser(ctx, budget.UserID); err != nil {
			return fmt.Errorf("load budget owner: %w", err)
		}

		start := *budget.EndDate
		end := core.PeriodEnd(start, budget.Frequency)
		successor = core.Budget{
			ID:              uuid.New(),
			UserID:          budget.UserID,
			Category:        budget.Category,
			PlannedAmount:   budget.PlannedAmount,
			SpentAmount:     decimal.Zero,
			Reminder:        budget.Reminder,
			StartDate:       start,
			EndDate:         &end,
			Frequency:       budget.Frequency,
			AutoRenew:       true,
			RenewalCount:    budget.RenewalCount + 1,
			LastRenewalDate: &now,
			CreatedAt:       now.UTC(),
		}

		if err := q.CreateBudget(ctx, successor); err != nil {
			return err
		}
		if err := q.MarkBudgetRenewed(ctx, budget.ID, now); err != nil {
			return err
		}
		renewed = true

		slog.InfoContext(ctx, "Budget renewed",
			"old_budget_id", budget.ID,
			"new_budget_id", successor.ID,
			"user_id", budget.UserID,
			"renewal_count", successor.RenewalCount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !renewed {
		return nil, nil
	}
	return &successor, nil
}

// checkOverlap rejects a candidate [start, end) period that intersects any
// existing budget of the same user and category, excluding the budget being
// updated. A nil end is treated as unbounded.
func checkOverlap(ctx context.Context, q *storage.Queries, userID uuid.UUID, category core.Category, start time.Time, end *time.Time, exclude uuid.UUID) error {
	siblings, err := q.ListBudgetsByCategory(ctx, userID, category)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if sibling.ID == exclude {
			continue
		}
		if sibling.Overlaps(start, end) {
			return core.ErrBudgetOverlap
		}
	}
	return nil
}

func recordSpend(ctx context.Context, q *storage.Queries, budgetID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return core.ErrInvalidAmount
	}
	budget, err := q.GetBudget(ctx, budgetID)
	if err != nil {
		return err
	}
	return q.UpdateBudgetSpent(ctx, budgetID, budget.SpentAmount.Add(amount))
}

func reverseSpend(ctx context.Context, q *storage.Queries, budgetID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return core.ErrInvalidAmount
	}
	budget, err := q.GetBudget(ctx, budgetID)
	if err != nil {
		return err
	}
	next := budget.SpentAmount.Sub(amount)
	if next.IsNegative() {
		next = decimal.Zero
	}
	return q.UpdateBudgetSpent(ctx, budgetID, next)
}
