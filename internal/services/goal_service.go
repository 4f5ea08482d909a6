package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// GoalService manages savings goals and their reserves. Funds move between
// the user balance and a goal's reserve atomically; the reserve only changes
// through the fund operations, never through a plain update.
type GoalService struct {
	store  *storage.Store
	events *amqp.Client
	now    func() time.Time
}

func NewGoalService(store *storage.Store, events *amqp.Client) *GoalService {
	return &GoalService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// CreateGoalParams carries the caller-controlled fields of a new goal.
type CreateGoalParams struct {
	Title        string
	Description  string
	TargetAmount decimal.Decimal
	TargetDate   time.Time
	Priority     int64
	Reminder     bool
}

func (s *GoalService) CreateGoal(ctx context.Context, userID uuid.UUID, params CreateGoalParams) (core.Goal, error) {
	now := s.now().UTC()
	goal := core.Goal{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         params.Title,
		Description:   params.Description,
		TargetAmount:  params.TargetAmount,
		CurrentAmount: decimal.Zero,
		TargetDate:    core.DateOnly(params.TargetDate),
		Priority:      params.Priority,
		Status:        core.GoalActive,
		Active:        true,
		Reminder:      params.Reminder,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}

	err := s.store.Tx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return err
		}
		return q.CreateGoal(ctx, goal)
	})
	if err != nil {
		return core.Goal{}, err
	}

	slog.InfoContext(ctx, "Goal created",
		"goal_id", goal.ID,
		"user_id", userID,
		"target", goal.TargetAmount)

	return goal, nil
}

// UpdateGoal replaces the descriptive fields of an owned goal. The reserve
// (current amount) is untouched; it only moves through the fund operations.
func (s *GoalService) UpdateGoal(ctx context.Context, id, userID uuid.UUID, params CreateGoalParams) (core.Goal, error) {
	var goal core.Goal
	err := s.store.Tx(ctx, func(q *storage.Queries) error {
		var err error
		goal, err = q.GetGoalForUser(ctx, id, userID)
		if err != nil {
			return err
		}

		goal.Title = params.Title
		goal.Description = params.Description
		goal.TargetAmount = params.TargetAmount
		goal.TargetDate = core.DateOnly(params.TargetDate)
		goal.Priority = params.Priority
		goal.Reminder = params.Reminder
		if err := goal.Validate(); err != nil {
			return err
		}
		goal.UpdatedAt = s.now().UTC()
		return q.UpdateGoal(ctx, goal)
	})
	if err != nil {
		return core.Goal{}, err
	}
	return goal, nil
}

func (s *GoalService) GetGoal(ctx context.Context, id, userID uuid.UUID) (core.Goal, error) {
	return s.store.Queries().GetGoalForUser(ctx, id, userID)
}

func (s *GoalService) ListGoals(ctx context.Context, userID uuid.UUID) ([]core.Goal, error) {
	return s.store.Queries().ListGoals(ctx, userID)
}

// DeleteGoal removes an owned goal and refunds its remaining reserve to the
// user balance, so deleting a goal never destroys money.
func (s *GoalService) DeleteGoal(ctx context.Context, id, userID uuid.UUID) error {
	err := s.store.Tx(ctx, func(q *storage.Queries) error {
		goal, err := q.GetGoalForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if goal.CurrentAmount.IsPositive() {
			if err := adjustBalance(ctx, q, userID, goal.CurrentAmount, false); err != nil {
				return err
			}
		}
		return q.DeleteGoal(ctx, id, userID)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Goal deleted", "goal_id", id, "user_id", userID)
	return nil
}

// AddFunds moves money from the user balance into the goal reserve. The
// debit is balance-gated: a reserve can never be funded beyond the balance.
func (s *GoalService) AddFunds(ctx context.Context, id, userID uuid.UUID, amount decimal.Decimal) (core.Goal, error) {
	if !amount.IsPositive() {
		return core.Goal{}, core.ErrInvalidAmount
	}

	var goal core.Goal
	err := s.store.Tx(ctx, func(q *storage.Queries) error {
		var err error
		goal, err = q.GetGoalForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if goal.Status != core.GoalActive {
			return core.ErrInvalidStatus
		}
		if err := adjustBalance(ctx, q, userID, amount.Neg(), true); err != nil {
			return err
		}
		goal.CurrentAmount = goal.CurrentAmount.Add(amount)
		goal.UpdatedAt = s.now().UTC()
		return q.UpdateGoal(ctx, goal)
	})
	if err != nil {
		return core.Goal{}, err
	}

	slog.InfoContext(ctx, "Funds added to goal",
		"goal_id", id,
		"user_id", userID,
		"amount", amount,
		"reserve", goal.CurrentAmount)

	return goal, nil
}

// WithdrawFunds moves money from the goal reserve back to the user balance.
func (s *GoalService) WithdrawFunds(ctx context.Context, id, userID uuid.UUID, amount decimal.Decimal) (core.Goal, error) {
	if !amount.IsPositive() {
		return core.Goal{}, core.ErrInvalidAmount
	}

	var goal core.Goal
	err := s.store.Tx(ctx, func(q *storage.Queries) error {
		var err error
		goal, err = q.GetGoalForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if goal.CurrentAmount.LessThan(amount) {
			return core.ErrInsufficientReserve
		}
		if err := adjustBalance(ctx, q, userID, amount, false); err != nil {
			return err
		}
		goal.CurrentAmount = goal.CurrentAmount.Sub(amount)
		goal.UpdatedAt = s.now().UTC()
		return q.UpdateGoal(ctx, goal)
	})
	if err != nil {
		return core.Goal{}, err
	}

	slog.InfoContext(ctx, "Funds withdrawn from goal",
		"goal_id", id,
		"user_id", userID,
		"amount", amount,
		"reserve", goal.CurrentAmount)

	return goal, nil
}

// ConvertToExpense spends part of the goal reserve: the reserve shrinks and
// an expense transaction records the purchase. The balance is untouched —
// reserved money already left it when the funds were added. When the reserve
// hits zero the goal completes and goes inactive.
func (s *GoalService) ConvertToExpense(ctx context.Context, id, userID uuid.UUID, amount decimal.Decimal, category string) (core.Transaction, error) {
	if !amount.IsPositive() {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	cat, err := core.ParseCategory(category)
	if err != nil {
		return core.Transaction{}, err
	}

	var (
		goal      core.Goal
		tx        core.Transaction
		completed bool
	)
	err = s.store.Tx(ctx, func(q *storage.Queries) error {
		goal, err = q.GetGoalForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if goal.CurrentAmount.LessThan(amount) {
			return core.ErrInsufficientReserve
		}

		now := s.now().UTC()
		tx = core.Transaction{
			ID:          uuid.New(),
			UserID:      userID,
			Title:       goal.Title,
			Description: "Goal purchase: " + goal.Title,
			Amount:      amount,
			Category:    cat,
			Type:        core.Expense,
			Date:        core.DateOnly(now),
			CreatedAt:   now,
		}
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return err
		}

		goal.CurrentAmount = goal.CurrentAmount.Sub(amount)
		if goal.CurrentAmount.IsZero() {
			goal.Status = core.GoalCompleted
			goal.Active = false
			completed = true
		}
		goal.UpdatedAt = now
		return q.UpdateGoal(ctx, goal)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Goal reserve converted to expense",
		"goal_id", id,
		"user_id", userID,
		"amount", amount,
		"reserve", goal.CurrentAmount,
		"completed", completed)

	if completed {
		publish(ctx, s.events, amqp.NewEvent(amqp.EventGoalCompleted,
			goal.ID, userID, goal.TargetAmount.String()))
	}
	return tx, nil
}

// GoalSummary aggregates a user's goals and the total reserved amount.
type GoalSummary struct {
	Total         int
	Active        int
	Completed     int
	TotalReserved decimal.Decimal
	TotalTarget   decimal.Decimal
}

func (s *GoalService) GetSummary(ctx context.Context, userID uuid.UUID) (GoalSummary, error) {
	goals, err := s.store.Queries().ListGoals(ctx, userID)
	if err != nil {
		return GoalSummary{}, err
	}

	summary := GoalSummary{
		Total:         len(goals),
		TotalReserved: decimal.Zero,
		TotalTarget:   decimal.Zero,
	}
	for _, g := range goals {
		if g.Status == core.GoalCompleted {
			summary.Completed++
		} else if g.Active {
			summary.Active++
			summary.TotalTarget = summary.TotalTarget.Add(g.TargetAmount)
		}
		summary.TotalReserved = summary.TotalReserved.Add(g.CurrentAmount)
	}
	return summary, nil
}
