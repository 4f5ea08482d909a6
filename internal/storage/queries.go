package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// timeLayout is a fixed-width UTC layout so date columns compare correctly
// as text in SQL predicates.
const timeLayout = "2006-01-02 15:04:05"

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every query can run
// standalone or inside a store transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

func parseIDPtr(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", s.String, err)
	}
	return &id, nil
}

func idPtr(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// --- users ---

func (q *Queries) CreateUser(ctx context.Context, u core.User) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id, balance, created_at) VALUES (?, ?, ?)`,
		u.ID.String(), u.Balance.String(), fmtTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (core.User, error) {
	var (
		u         core.User
		idStr     string
		balance   string
		createdAt string
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, balance, created_at FROM users WHERE id = ?`, id.String()).
		Scan(&idStr, &balance, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	if u.ID, err = uuid.Parse(idStr); err != nil {
		return core.User{}, fmt.Errorf("parse user id: %w", err)
	}
	if u.Balance, err = parseAmount(balance); err != nil {
		return core.User{}, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.User{}, err
	}
	return u, nil
}

func (q *Queries) UpdateUserBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET balance = ? WHERE id = ?`, balance.String(), id.String())
	if err != nil {
		return fmt.Errorf("update user balance: %w", err)
	}
	return requireRow(res)
}

func (q *Queries) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- transactions ---

const transactionColumns = `id, user_id, title, description, amount, category, type, date,
	budget_id, recurring_id, recurring_generated, created_at`

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.UserID.String(), t.Title, t.Description,
		t.Amount.String(), string(t.Category), string(t.Type), fmtTime(t.Date),
		idPtr(t.BudgetID), idPtr(t.RecurringID), t.RecurringGenerated, fmtTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t                        core.Transaction
		idStr, userID            string
		amount, category, txType string
		date, createdAt          string
		budgetID, recurringID    sql.NullString
	)
	err := row.Scan(&idStr, &userID, &t.Title, &t.Description, &amount,
		&category, &txType, &date, &budgetID, &recurringID, &t.RecurringGenerated, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	if t.ID, err = uuid.Parse(idStr); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	if t.UserID, err = uuid.Parse(userID); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction user id: %w", err)
	}
	if t.Amount, err = parseAmount(amount); err != nil {
		return core.Transaction{}, err
	}
	t.Category = core.Category(category)
	t.Type = core.TransactionType(txType)
	if t.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if t.BudgetID, err = parseIDPtr(budgetID); err != nil {
		return core.Transaction{}, err
	}
	if t.RecurringID, err = parseIDPtr(recurringID); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id, userID uuid.UUID) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`,
		id.String(), userID.String())
	return scanTransaction(row)
}

func (q *Queries) ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	return q.listTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY date DESC`,
		userID.String())
}

func (q *Queries) ListTransactionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]core.Transaction, error) {
	return q.listTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND date >= ? AND date < ? ORDER BY date DESC`,
		userID.String(), fmtTime(from), fmtTime(to))
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions
		 SET title = ?, description = ?, amount = ?, category = ?, type = ?, date = ?, budget_id = ?
		 WHERE id = ? AND user_id = ?`,
		t.Title, t.Description, t.Amount.String(), string(t.Category), string(t.Type),
		fmtTime(t.Date), idPtr(t.BudgetID), t.ID.String(), t.UserID.String())
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

// --- budgets ---

const budgetColumns = `id, user_id, category, planned_amount, spent_amount, reminder,
	start_date, end_date, frequency, auto_renew, renewal_count, last_renewal_date, created_at`

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.UserID.String(), string(b.Category),
		b.PlannedAmount.String(), b.SpentAmount.String(), b.Reminder,
		fmtTime(b.StartDate), fmtTimePtr(b.EndDate), string(b.Frequency),
		b.AutoRenew, b.RenewalCount, fmtTimePtr(b.LastRenewalDate), fmtTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b                          core.Budget
		idStr, userID, category    string
		planned, spent             string
		startDate, frequency       string
		endDate, lastRenewal       sql.NullString
		createdAt                  string
	)
	err := row.Scan(&idStr, &userID, &category, &planned, &spent, &b.Reminder,
		&startDate, &endDate, &frequency, &b.AutoRenew, &b.RenewalCount, &lastRenewal, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	if b.ID, err = uuid.Parse(idStr); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget id: %w", err)
	}
	if b.UserID, err = uuid.Parse(userID); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget user id: %w", err)
	}
	b.Category = core.Category(category)
	if b.PlannedAmount, err = parseAmount(planned); err != nil {
		return core.Budget{}, err
	}
	if b.SpentAmount, err = parseAmount(spent); err != nil {
		return core.Budget{}, err
	}
	if b.StartDate, err = parseTime(startDate); err != nil {
		return core.Budget{}, err
	}
	if b.EndDate, err = parseTimePtr(endDate); err != nil {
		return core.Budget{}, err
	}
	b.Frequency = core.Frequency(frequency)
	if b.LastRenewalDate, err = parseTimePtr(lastRenewal); err != nil {
		return core.Budget{}, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (q *Queries) GetBudget(ctx context.Context, id uuid.UUID) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id.String())
	return scanBudget(row)
}

func (q *Queries) GetBudgetForUser(ctx context.Context, id, userID uuid.UUID) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`,
		id.String(), userID.String())
	return scanBudget(row)
}

func (q *Queries) ListBudgets(ctx context.Context, userID uuid.UUID) ([]core.Budget, error) {
	return q.listBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY category, start_date`,
		userID.String())
}

// ListBudgetsByCategory returns every budget of one user+category; the
// overlap test runs on the domain type, not in SQL.
func (q *Queries) ListBudgetsByCategory(ctx context.Context, userID uuid.UUID, category core.Category) ([]core.Budget, error) {
	return q.listBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND category = ?`,
		userID.String(), string(category))
}

// ListRenewableBudgets selects budgets due for auto-renewal at the given time.
func (q *Queries) ListRenewableBudgets(ctx context.Context, now time.Time) ([]core.Budget, error) {
	return q.listBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE auto_renew = 1 AND end_date IS NOT NULL AND end_date <= ?`,
		fmtTime(now))
}

// FindBudgetForSpend returns the budget whose [start, end) period covers the
// given expense date for the user+category, if any.
func (q *Queries) FindBudgetForSpend(ctx context.Context, userID uuid.UUID, category core.Category, date time.Time) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE user_id = ? AND category = ? AND start_date <= ?
		   AND (end_date IS NULL OR end_date > ?)
		 LIMIT 1`,
		userID.String(), string(category), fmtTime(date), fmtTime(date))
	return scanBudget(row)
}

func (q *Queries) listBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets
		 SET planned_amount = ?, reminder = ?, frequency = ?, end_date = ?, auto_renew = ?
		 WHERE id = ?`,
		b.PlannedAmount.String(), b.Reminder, string(b.Frequency),
		fmtTimePtr(b.EndDate), b.AutoRenew, b.ID.String())
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRow(res)
}

func (q *Queries) UpdateBudgetSpent(ctx context.Context, id uuid.UUID, spent decimal.Decimal) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET spent_amount = ? WHERE id = ?`, spent.String(), id.String())
	if err != nil {
		return fmt.Errorf("update budget spent: %w", err)
	}
	return requireRow(res)
}

// MarkBudgetRenewed flips auto-renewal off on an expired budget and records
// when the successor was spawned.
func (q *Queries) MarkBudgetRenewed(ctx context.Context, id uuid.UUID, renewedAt time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET auto_renew = 0, last_renewal_date = ? WHERE id = ?`,
		fmtTime(renewedAt), id.String())
	if err != nil {
		return fmt.Errorf("mark budget renewed: %w", err)
	}
	return requireRow(res)
}

func (q *Queries) DeleteBudget(ctx context.Context, id, userID uuid.UUID) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

// --- recurring transactions ---

const recurringColumns = `id, user_id, title, description, amount, category, type, frequency,
	start_date, end_date, next_occurrence, status, occurrence_count, last_created_date,
	created_at, updated_at`

func (q *Queries) CreateRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (`+recurringColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID.String(), rt.UserID.String(), rt.Title, rt.Description,
		rt.Amount.String(), string(rt.Category), string(rt.Type), string(rt.Frequency),
		fmtTime(rt.StartDate), fmtTimePtr(rt.EndDate), fmtTime(rt.NextOccurrence),
		string(rt.Status), rt.OccurrenceCount, fmtTimePtr(rt.LastCreatedDate),
		fmtTime(rt.CreatedAt), fmtTime(rt.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert recurring transaction: %w", err)
	}
	return nil
}

func scanRecurring(row interface{ Scan(...any) error }) (core.RecurringTransaction, error) {
	var (
		rt                       core.RecurringTransaction
		idStr, userID            string
		amount, category, txType string
		frequency, startDate     string
		endDate, lastCreated     sql.NullString
		nextOccurrence, status   string
		createdAt, updatedAt     string
	)
	err := row.Scan(&idStr, &userID, &rt.Title, &rt.Description, &amount, &category,
		&txType, &frequency, &startDate, &endDate, &nextOccurrence, &status,
		&rt.OccurrenceCount, &lastCreated, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("scan recurring transaction: %w", err)
	}
	if rt.ID, err = uuid.Parse(idStr); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("parse recurring id: %w", err)
	}
	if rt.UserID, err = uuid.Parse(userID); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("parse recurring user id: %w", err)
	}
	if rt.Amount, err = parseAmount(amount); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.Category = core.Category(category)
	rt.Type = core.TransactionType(txType)
	rt.Frequency = core.Frequency(frequency)
	if rt.StartDate, err = parseTime(startDate); err != nil {
		return core.RecurringTransaction{}, err
	}
	if rt.EndDate, err = parseTimePtr(endDate); err != nil {
		return core.RecurringTransaction{}, err
	}
	if rt.NextOccurrence, err = parseTime(nextOccurrence); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.Status = core.RecurringStatus(status)
	if rt.LastCreatedDate, err = parseTimePtr(lastCreated); err != nil {
		return core.RecurringTransaction{}, err
	}
	if rt.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.RecurringTransaction{}, err
	}
	if rt.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.RecurringTransaction{}, err
	}
	return rt, nil
}

func (q *Queries) GetRecurring(ctx context.Context, id uuid.UUID) (core.RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ?`, id.String())
	return scanRecurring(row)
}

func (q *Queries) GetRecurringForUser(ctx context.Context, id, userID uuid.UUID) (core.RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ? AND user_id = ?`,
		id.String(), userID.String())
	return scanRecurring(row)
}

func (q *Queries) ListRecurring(ctx context.Context, userID uuid.UUID) ([]core.RecurringTransaction, error) {
	return q.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions
		 WHERE user_id = ? ORDER BY created_at DESC`,
		userID.String())
}

func (q *Queries) ListRecurringByStatus(ctx context.Context, userID uuid.UUID, status core.RecurringStatus) ([]core.RecurringTransaction, error) {
	return q.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions
		 WHERE user_id = ? AND status = ? ORDER BY created_at DESC`,
		userID.String(), string(status))
}

// ListProcessableRecurring selects the templates due for materialization:
// active, next occurrence reached, not past their end date.
func (q *Queries) ListProcessableRecurring(ctx context.Context, now time.Time) ([]core.RecurringTransaction, error) {
	return q.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions
		 WHERE status = ? AND next_occurrence <= ? AND (end_date IS NULL OR end_date > ?)`,
		string(core.StatusActive), fmtTime(now), fmtTime(now))
}

func (q *Queries) listRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringTransaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_transactions
		 SET title = ?, description = ?, amount = ?, category = ?, type = ?, frequency = ?,
		     end_date = ?, next_occurrence = ?, updated_at = ?
		 WHERE id = ?`,
		rt.Title, rt.Description, rt.Amount.String(), string(rt.Category), string(rt.Type),
		string(rt.Frequency), fmtTimePtr(rt.EndDate), fmtTime(rt.NextOccurrence),
		fmtTime(rt.UpdatedAt), rt.ID.String())
	if err != nil {
		return fmt.Errorf("update recurring transaction: %w", err)
	}
	return requireRow(res)
}

func (q *Queries) UpdateRecurringStatus(ctx context.Context, id uuid.UUID, status core.RecurringStatus, updatedAt time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), fmtTime(updatedAt), id.String())
	if err != nil {
		return fmt.Errorf("update recurring status: %w", err)
	}
	return requireRow(res)
}

// AdvanceRecurring persists the post-materialization schedule state in one
// statement: the bumped occurrence count, the replayed next occurrence and
// the (possibly auto-cancelled) status.
func (q *Queries) AdvanceRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_transactions
		 SET occurrence_count = ?, next_occurrence = ?, last_created_date = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		rt.OccurrenceCount, fmtTime(rt.NextOccurrence), fmtTimePtr(rt.LastCreatedDate),
		string(rt.Status), fmtTime(rt.UpdatedAt), rt.ID.String())
	if err != nil {
		return fmt.Errorf("advance recurring transaction: %w", err)
	}
	return requireRow(res)
}

func (q *Queries) DeleteRecurring(ctx context.Context, id, userID uuid.UUID) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM recurring_transactions WHERE id = ? AND user_id = ?`,
		id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete recurring transaction: %w", err)
	}
	return requireRow(res)
}

// --- goals ---

const goalColumns = `id, user_id, title, description, target_amount, current_amount,
	target_date, priority, status, active, reminder, created_at, updated_at`

func (q *Queries) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.UserID.String(), g.Title, g.Description,
		g.TargetAmount.String(), g.CurrentAmount.String(), fmtTime(g.TargetDate),
		g.Priority, string(g.Status), g.Active, g.Reminder,
		fmtTime(g.CreatedAt), fmtTime(g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var (
		g                     core.Goal
		idStr, userID         string
		target, current       string
		targetDate, status    string
		createdAt, updatedAt  string
	)
	err := row.Scan(&idStr, &userID, &g.Title, &g.Description, &target, &current,
		&targetDate, &g.Priority, &status, &g.Active, &g.Reminder, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	if g.ID, err = uuid.Parse(idStr); err != nil {
		return core.Goal{}, fmt.Errorf("parse goal id: %w", err)
	}
	if g.UserID, err = uuid.Parse(userID); err != nil {
		return core.Goal{}, fmt.Errorf("parse goal user id: %w", err)
	}
	if g.TargetAmount, err = parseAmount(target); err != nil {
		return core.Goal{}, err
	}
	if g.CurrentAmount, err = parseAmount(current); err != nil {
		return core.Goal{}, err
	}
	if g.TargetDate, err = parseTime(targetDate); err != nil {
		return core.Goal{}, err
	}
	g.Status = core.GoalStatus(status)
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Goal{}, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func (q *Queries) GetGoalForUser(ctx context.Context, id, userID uuid.UUID) (core.Goal, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`,
		id.String(), userID.String())
	return scanGoal(row)
}

func (q *Queries) ListGoals(ctx context.Context, userID uuid.UUID) ([]core.Goal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY priority, target_date`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE goals
		 SET title = ?, description = ?, target_amount = ?, current_amount = ?, target_date = ?,
		     priority = ?, status = ?, active = ?, reminder = ?, updated_at = ?
		 WHERE id = ?`,
		g.Title, g.Description, g.TargetAmount.String(), g.CurrentAmount.String(),
		fmtTime(g.TargetDate), g.Priority, string(g.Status), g.Active, g.Reminder,
		fmtTime(g.UpdatedAt), g.ID.String())
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res)
}

func (q *Queries) DeleteGoal(ctx context.Context, id, userID uuid.UUID) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res)
}

// --- daily snapshots ---

// CreateSnapshot inserts a point-in-time capture; the per-user-per-day
// uniqueness makes the snapshot sweep idempotent.
func (q *Queries) CreateSnapshot(ctx context.Context, s core.DailySnapshot) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO daily_snapshots (id, user_id, snapshot_date, balance, reserved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, snapshot_date) DO NOTHING`,
		s.ID.String(), s.UserID.String(), fmtTime(s.Date),
		s.Balance.String(), s.Reserved.String(), fmtTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (q *Queries) ListSnapshots(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]core.DailySnapshot, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, snapshot_date, balance, reserved, created_at
		 FROM daily_snapshots
		 WHERE user_id = ? AND snapshot_date >= ? AND snapshot_date < ?
		 ORDER BY snapshot_date`,
		userID.String(), fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.DailySnapshot
	for rows.Next() {
		var (
			s                 core.DailySnapshot
			idStr, userStr    string
			date              string
			balance, reserved string
			createdAt         string
		)
		if err := rows.Scan(&idStr, &userStr, &date, &balance, &reserved, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if s.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse snapshot id: %w", err)
		}
		if s.UserID, err = uuid.Parse(userStr); err != nil {
			return nil, fmt.Errorf("parse snapshot user id: %w", err)
		}
		if s.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if s.Balance, err = parseAmount(balance); err != nil {
			return nil, err
		}
		if s.Reserved, err = parseAmount(reserved); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// requireRow maps a zero-row write to core.ErrNotFound so services can
// treat missing ids and ownership mismatches uniformly.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
