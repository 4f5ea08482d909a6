package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"

	Weekly  Frequency = "Weekly"
	Monthly Frequency = "Monthly"
	Yearly  Frequency = "Yearly"

	StatusActive    RecurringStatus = "Active"
	StatusPaused    RecurringStatus = "Paused"
	StatusCancelled RecurringStatus = "Cancelled"

	GoalActive    GoalStatus = "Active"
	GoalCompleted GoalStatus = "Completed"
)

type (
	TransactionType string
	Frequency       string
	RecurringStatus string
	GoalStatus      string
	Category        string

	User struct {
		ID        uuid.UUID
		Balance   decimal.Decimal
		CreatedAt time.Time
	}

	Transaction struct {
		ID                 uuid.UUID
		UserID             uuid.UUID
		Title              string
		Description        string
		Amount             decimal.Decimal
		Category           Category
		Type               TransactionType
		Date               time.Time
		BudgetID           *uuid.UUID
		RecurringID        *uuid.UUID
		RecurringGenerated bool
		CreatedAt          time.Time
	}

	Budget struct {
		ID              uuid.UUID
		UserID          uuid.UUID
		Category        Category
		PlannedAmount   decimal.Decimal
		SpentAmount     decimal.Decimal
		Reminder        bool
		StartDate       time.Time
		EndDate         *time.Time
		Frequency       Frequency
		AutoRenew       bool
		RenewalCount    int64
		LastRenewalDate *time.Time
		CreatedAt       time.Time
	}

	RecurringTransaction struct {
		ID              uuid.UUID
		UserID          uuid.UUID
		Title           string
		Description     string
		Amount          decimal.Decimal
		Category        Category
		Type            TransactionType
		Frequency       Frequency
		StartDate       time.Time
		EndDate         *time.Time
		NextOccurrence  time.Time
		Status          RecurringStatus
		OccurrenceCount int64
		LastCreatedDate *time.Time
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	Goal struct {
		ID            uuid.UUID
		UserID        uuid.UUID
		Title         string
		Description   string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		TargetDate    time.Time
		Priority      int64
		Status        GoalStatus
		Active        bool
		Reminder      bool
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	DailySnapshot struct {
		ID        uuid.UUID
		UserID    uuid.UUID
		Date      time.Time
		Balance   decimal.Decimal
		Reserved  decimal.Decimal
		CreatedAt time.Time
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientReserve = errors.New("insufficient goal reserve")
	ErrBudgetOverlap       = errors.New("budget period overlaps an existing budget")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrEmptyTitle          = errors.New("empty title")
	ErrPastStartDate       = errors.New("start date is in the past")
	ErrEndBeforeStart      = errors.New("end date must be after start date")
	ErrCancelled           = errors.New("recurring transaction is cancelled")
)

// ValidCategories is the closed set of transaction and budget categories.
var ValidCategories = []Category{
	"Food",
	"Grocery",
	"Rent",
	"Education",
	"Health",
	"Entertainment",
	"Transportation",
	"Miscellaneous",
}

// ParseCategory resolves s against the closed category set, ignoring case.
// The returned Category always carries the canonical spelling.
func ParseCategory(s string) (Category, error) {
	for _, c := range ValidCategories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func ParseTransactionType(s string) (TransactionType, error) {
	switch {
	case strings.EqualFold(s, string(Income)):
		return Income, nil
	case strings.EqualFold(s, string(Expense)):
		return Expense, nil
	}
	return "", ErrInvalidType
}

func ParseFrequency(s string) (Frequency, error) {
	switch {
	case strings.EqualFold(s, string(Weekly)):
		return Weekly, nil
	case strings.EqualFold(s, string(Monthly)):
		return Monthly, nil
	case strings.EqualFold(s, string(Yearly)):
		return Yearly, nil
	}
	return "", ErrInvalidFrequency
}

func ParseRecurringStatus(s string) (RecurringStatus, error) {
	switch {
	case strings.EqualFold(s, string(StatusActive)):
		return StatusActive, nil
	case strings.EqualFold(s, string(StatusPaused)):
		return StatusPaused, nil
	case strings.EqualFold(s, string(StatusCancelled)):
		return StatusCancelled, nil
	}
	return "", ErrInvalidStatus
}

// SignedAmount is the transaction's effect on the user balance:
// positive for income, negative for expense.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := ParseCategory(string(t.Category)); err != nil {
		return err
	}
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (b Budget) Validate() error {
	if _, err := ParseCategory(string(b.Category)); err != nil {
		return err
	}
	if !b.PlannedAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if b.SpentAmount.IsNegative() {
		return errors.New("spent amount cannot be negative")
	}
	if b.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	if _, err := ParseFrequency(string(b.Frequency)); err != nil {
		return err
	}
	return nil
}

// Overlaps reports whether the budget's [start, end) period intersects
// [start, end). A nil end is treated as unbounded.
func (b Budget) Overlaps(start time.Time, end *time.Time) bool {
	if end != nil && !b.StartDate.Before(*end) {
		return false
	}
	if b.EndDate != nil && !start.Before(*b.EndDate) {
		return false
	}
	return true
}

// Renewable reports whether the auto-renewal sweep should spawn a
// successor period for this budget at the given time.
func (b Budget) Renewable(now time.Time) bool {
	return b.AutoRenew && b.EndDate != nil && !b.EndDate.After(now)
}

func (rt RecurringTransaction) Validate() error {
	if strings.TrimSpace(rt.Title) == "" {
		return ErrEmptyTitle
	}
	if !rt.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := ParseCategory(string(rt.Category)); err != nil {
		return err
	}
	if rt.Type != Income && rt.Type != Expense {
		return ErrInvalidType
	}
	if _, err := ParseFrequency(string(rt.Frequency)); err != nil {
		return err
	}
	if rt.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	if rt.EndDate != nil && !rt.EndDate.After(rt.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// CanBeProcessed reports whether the template is due for materialization:
// still active, next occurrence reached, and not past its end date.
func (rt RecurringTransaction) CanBeProcessed(now time.Time) bool {
	if rt.Status != StatusActive {
		return false
	}
	if rt.NextOccurrence.After(now) {
		return false
	}
	if rt.EndDate != nil && !rt.EndDate.After(now) {
		return false
	}
	return true
}

// CanTransitionTo enforces the template state machine: Active and Paused
// are interchangeable, Cancelled is terminal.
func (rt RecurringTransaction) CanTransitionTo(next RecurringStatus) bool {
	if rt.Status == StatusCancelled {
		return false
	}
	switch next {
	case StatusActive, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if len(g.Title) < 2 || len(g.Title) > 100 {
		return errors.New("title must be between 2 and 100 characters")
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return errors.New("current amount cannot be negative")
	}
	return nil
}
