package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// errNotProcessable marks a template that stopped being due between the
// sweep query and its transaction. It never escapes the sweep.
var errNotProcessable = errors.New("recurring transaction no longer processable")

// RecurringService manages recurring transaction templates and materializes
// them into ledger transactions when they come due.
//
// The schedule is drift-free: the next occurrence is always replayed from the
// immutable start date, never derived from when a sweep happened to run.
type RecurringService struct {
	store  *storage.Store
	events *amqp.Client
	now    func() time.Time
}

func NewRecurringService(store *storage.Store, events *amqp.Client) *RecurringService {
	return &RecurringService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// CreateRecurringParams carries the caller-controlled fields of a new
// recurring transaction template.
type CreateRecurringParams struct {
	Title       string
	Description string
	Amount      decimal.Decimal
	Category    string
	Type        string
	Frequency   string
	StartDate   time.Time
	EndDate     *time.Time
}

func (s *RecurringService) CreateTemplate(ctx context.Context, userID uuid.UUID, params CreateRecurringParams) (core.RecurringTransaction, error) {
	category, err := core.ParseCategory(params.Category)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	typ, err := core.ParseTransactionType(params.Type)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	frequency, err := core.ParseFrequency(params.Frequency)
	if err != nil {
		return core.RecurringTransaction{}, err
	}

	now := s.now().UTC()
	start := core.DateOnly(params.StartDate)
	if start.Before(core.DateOnly(now)) {
		return core.RecurringTransaction{}, core.ErrPastStartDate
	}

	var end *time.Time
	if params.EndDate != nil {
		e := core.DateOnly(*params.EndDate)
		if !e.After(start) {
			return core.RecurringTransaction{}, core.ErrEndBeforeStart
		}
		end = &e
	}

	rt := core.RecurringTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       params.Title,
		Description: params.Description,
		Amount:      params.Amount,
		Category:    category,
		Type:        typ,
		Frequency:   frequency,
		StartDate:   start,
		EndDate:     end,
		// The first materialization happens one period after the start.
		NextOccurrence: core.Advance(start, frequency),
		Status:         core.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}

	err = s.store.Tx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return fmt.Errorf("load template owner: %w", err)
		}
		return q.CreateRecurring(ctx, rt)
	})
	if err != nil {
		return core.RecurringTransaction{}, err
	}

	slog.InfoContext(ctx, "Recurring transaction created",
		"recurring_id", rt.ID,
		"user_id", userID,
		"frequency", frequency,
		"next_occurrence", rt.NextOccurrence.Format("2006-01-02"))

	return rt, nil
}

// UpdateRecurringParams carries the mutable template fields. The start date
// is immutable so the occurrence schedule stays replayable.
type UpdateRecurringParams struct {
	Title       string
	Description string
	Amount      decimal.Decimal
	Category    string
	Type        string
	Frequency   string
	EndDate     *time.Time
}

func (s *RecurringService) UpdateTemplate(ctx context.Context, id, userID uuid.UUID, params UpdateRecurringParams) (core.RecurringTransaction, error) {
	category, err := core.ParseCategory(params.Category)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	typ, err := core.ParseTransactionType(params.Type)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	frequency, err := core.ParseFrequency(params.Frequency)
	if err != nil {
		return core.RecurringTransaction{}, err
	}

	var rt core.RecurringTransaction
	err = s.store.Tx(ctx, func(q *storage.Queries) error {
		rt, err = q.GetRecurringForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if rt.Status == core.StatusCancelled {
			return core.ErrCancelled
		}

		rt.Title = params.Title
		rt.Description = params.Description
		rt.Amount = params.Amount
		rt.Category = category
		rt.Type = typ
		if params.EndDate != nil {
			e := core.DateOnly(*params.EndDate)
			if !e.After(rt.StartDate) {
				return core.ErrEndBeforeStart
			}
			rt.EndDate = &e
		} else {
			rt.EndDate = nil
		}
		if rt.Frequency != frequency {
			// Replay the schedule from the immutable start date under the
			// new frequency; already-materialized occurrences keep their count.
			rt.Frequency = frequency
			rt.NextOccurrence = core.OccurrenceAt(rt.StartDate, frequency, rt.OccurrenceCount+1)
		}
		// Same exhaustion rule the sweep applies: a next occurrence at or past
		// the end date means the template is done.
		if rt.EndDate != nil && !rt.NextOccurrence.Before(*rt.EndDate) {
			rt.Status = core.StatusCancelled
		}
		if err := rt.Validate(); err != nil {
			return err
		}
		rt.UpdatedAt = s.now().UTC()
		return q.UpdateRecurring(ctx, rt)
	})
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	return rt, nil
}

func (s *RecurringService) GetTemplate(ctx context.Context, id, userID uuid.UUID) (core.RecurringTransaction, error) {
	return s.store.Queries().GetRecurringForUser(ctx, id, userID)
}

func (s *RecurringService) ListTemplates(ctx context.Context, userID uuid.UUID) ([]core.RecurringTransaction, error) {
	return s.store.Queries().ListRecurring(ctx, userID)
}

func (s *RecurringService) ListTemplatesByStatus(ctx context.Context, userID uuid.UUID, status string) ([]core.RecurringTransaction, error) {
	parsed, err := core.ParseRecurringStatus(status)
	if err != nil {
		return nil, err
	}
	return s.store.Queries().ListRecurringByStatus(ctx, userID, parsed)
}

func (s *RecurringService) PauseTemplate(ctx context.Context, id, userID uuid.UUID) error {
	return s.transition(ctx, id, userID, core.StatusPaused)
}

func (s *RecurringService) ResumeTemplate(ctx context.Context, id, userID uuid.UUID) error {
	return s.transition(ctx, id, userID, core.StatusActive)
}

// CancelTemplate is terminal: a cancelled template can never be resumed.
func (s *RecurringService) CancelTemplate(ctx context.Context, id, userID uuid.UUID) error {
	return s.transition(ctx, id, userID, core.StatusCancelled)
}

func (s *RecurringService) transition(ctx context.Context, id, userID uuid.UUID, next core.RecurringStatus) error {
	return s.store.Tx(ctx, func(q *storage.Queries) error {
		rt, err := q.GetRecurringForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if !rt.CanTransitionTo(next) {
			return core.ErrCancelled
		}
		if rt.Status == next {
			return nil
		}
		return q.UpdateRecurringStatus(ctx, id, next, s.now().UTC())
	})
}

func (s *RecurringService) DeleteTemplate(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.Tx(ctx, func(q *storage.Queries) error {
		return q.DeleteRecurring(ctx, id, userID)
	})
}

// ProcessTemplate materializes one owned template on demand, regardless of
// the sweep schedule. The template must still be due.
func (s *RecurringService) ProcessTemplate(ctx context.Context, id, userID uuid.UUID) (core.Transaction, error) {
	if _, err := s.store.Queries().GetRecurringForUser(ctx, id, userID); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.processOne(ctx, id, s.now().UTC())
	if errors.Is(err, errNotProcessable) {
		return core.Transaction{}, fmt.Errorf("recurring transaction not due: %w", core.ErrInvalidStatus)
	}
	return tx, err
}

// RunProcessingSweep materializes every due template. Each template runs in
// its own store transaction so one failure (for example insufficient funds)
// never blocks the rest; failed templates stay due and retry next pass.
func (s *RecurringService) RunProcessingSweep(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.Queries().ListProcessableRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list processable recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Running recurring transaction sweep",
		"due", len(due),
		"sweep_time", now.Format("2006-01-02 15:04:05"))

	processed := 0
	for _, rt := range due {
		tx, err := s.processOne(ctx, rt.ID, now)
		if errors.Is(err, errNotProcessable) {
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring transaction",
				"recurring_id", rt.ID,
				"user_id", rt.UserID,
				"error", err)
			continue
		}
		processed++
		publish(ctx, s.events, amqp.NewEvent(amqp.EventTransactionMaterialized,
			tx.ID, tx.UserID, tx.Amount.String()))
	}

	slog.InfoContext(ctx, "Recurring transaction sweep complete",
		"processed", processed,
		"due", len(due))

	return processed, nil
}

// processOne materializes one template in one store transaction: insert the
// generated ledger transaction, apply its balance effect, record any budget
// spend, then advance the schedule. An expense the balance cannot cover
// fails the whole unit and the template stays due.
func (s *RecurringService) processOne(ctx context.Context, id uuid.UUID, now time.Time) (core.Transaction, error) {
	var tx core.Transaction
	err := s.store.Tx(ctx, func(q *storage.Queries) error {
		rt, err := q.GetRecurring(ctx, id)
		if err != nil {
			return err
		}
		if !rt.CanBeProcessed(now) {
			return errNotProcessable
		}
		if err := rt.Validate(); err != nil {
			return fmt.Errorf("template not valid for processing: %w", err)
		}

		tx = core.Transaction{
			ID:                 uuid.New(),
			UserID:             rt.UserID,
			Title:              rt.Title,
			Description:        rt.Description,
			Amount:             rt.Amount,
			Category:           rt.Category,
			Type:               rt.Type,
			Date:               core.DateOnly(now),
			RecurringID:        &rt.ID,
			RecurringGenerated: true,
			CreatedAt:          now.UTC(),
		}

		// Only expenses are balance-gated; income always applies, even to a
		// balance that direct CRUD has driven negative.
		if rt.Type == core.Expense {
			if err := ApplyTransactionEffectGated(ctx, q, rt.UserID, rt.Type, rt.Amount); err != nil {
				return err
			}
		} else {
			if err := ApplyTransactionEffect(ctx, q, rt.UserID, rt.Type, rt.Amount); err != nil {
				return err
			}
		}
		if err := linkAndRecordSpend(ctx, q, &tx); err != nil {
			return err
		}
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return err
		}

		created := core.DateOnly(now)
		rt.OccurrenceCount++
		rt.LastCreatedDate = &created
		rt.NextOccurrence = core.OccurrenceAt(rt.StartDate, rt.Frequency, rt.OccurrenceCount+1)
		if rt.EndDate != nil && !rt.NextOccurrence.Before(*rt.EndDate) {
			rt.Status = core.StatusCancelled
		}
		rt.UpdatedAt = now.UTC()

		if err := q.AdvanceRecurring(ctx, rt); err != nil {
			return err
		}

		slog.InfoContext(ctx, "Recurring transaction materialized",
			"recurring_id", rt.ID,
			"transaction_id", tx.ID,
			"user_id", rt.UserID,
			"occurrence", rt.OccurrenceCount,
			"next_occurrence", rt.NextOccurrence.Format("2006-01-02"),
			"status", rt.Status)
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// RecurringSummary aggregates a user's templates by status and projects the
// total monthly commitment of the active ones.
type RecurringSummary struct {
	Total          int
	Active         int
	Paused         int
	Cancelled      int
	MonthlyIncome  decimal.Decimal
	MonthlyExpense decimal.Decimal
}

func (s *RecurringService) GetSummary(ctx context.Context, userID uuid.UUID) (RecurringSummary, error) {
	templates, err := s.store.Queries().ListRecurring(ctx, userID)
	if err != nil {
		return RecurringSummary{}, err
	}

	summary := RecurringSummary{
		Total:          len(templates),
		MonthlyIncome:  decimal.Zero,
		MonthlyExpense: decimal.Zero,
	}
	for _, rt := range templates {
		switch rt.Status {
		case core.StatusActive:
			summary.Active++
		case core.StatusPaused:
			summary.Paused++
		case core.StatusCancelled:
			summary.Cancelled++
		}
		if rt.Status != core.StatusActive {
			continue
		}
		monthly := monthlyEquivalent(rt.Amount, rt.Frequency)
		if rt.Type == core.Income {
			summary.MonthlyIncome = summary.MonthlyIncome.Add(monthly)
		} else {
			summary.MonthlyExpense = summary.MonthlyExpense.Add(monthly)
		}
	}
	return summary, nil
}

func monthlyEquivalent(amount decimal.Decimal, f core.Frequency) decimal.Decimal {
	switch f {
	case core.Weekly:
		// 52 weeks over 12 months.
		return amount.Mul(decimal.NewFromInt(52)).Div(decimal.NewFromInt(12))
	case core.Yearly:
		return amount.Div(decimal.NewFromInt(12))
	}
	return amount
}
