package provider

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spendly/internal/categories"
	"spendly/internal/models"
)

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return fmt.Errorf("%w: amount must be a non-negative number", ErrValidation)
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date must look like 2006-01-02", ErrValidation)
	}
	return nil
}

func validateInput(in models.ExpenseInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if in.Date != "" {
		return validateDate(in.Date)
	}
	return nil
}

func validatePatch(patch models.ExpensePatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return err
		}
	}
	if patch.Date != nil {
		return validateDate(*patch.Date)
	}
	return nil
}

func isEmptyPatch(patch models.ExpensePatch) bool {
	return patch.Title == nil && patch.Amount == nil && patch.Category == nil &&
		patch.Date == nil && patch.Description == nil
}

// toUpdate maps a local patch onto the API's field names.
func toUpdate(patch models.ExpensePatch) models.ExpenseUpdate {
	return models.ExpenseUpdate{
		Description: patch.Title,
		Amount:      patch.Amount,
		Category:    patch.Category,
		Date:        patch.Date,
		Notes:       patch.Description,
	}
}

func applyPatch(e models.Expense, patch models.ExpensePatch) models.Expense {
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	return e
}

func (p *Provider) indexOfExpenseLocked(id string) int {
	for i, e := range p.expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// ensureCategoryLocked adds a derived entry for name when no category has it. The
// new entry takes the palette color for the current list length. Needs catMu and mu.
func (p *Provider) ensureCategoryLocked(name string) {
	if _, ok := categories.FindByName(p.categories, name); ok {
		return
	}
	p.categories = append(p.categories, categories.NewDerived(name, len(p.categories)))
}

// AddExpense creates the expense remotely and, once confirmed, puts it at the head
// of the local list.
func (p *Provider) AddExpense(ctx context.Context, in models.ExpenseInput) (models.Expense, error) {
	if err := validateInput(in); err != nil {
		return models.Expense{}, err
	}
	gen, identity, err := p.active()
	if err != nil {
		return models.Expense{}, err
	}

	rec, err := p.remote.AddExpense(ctx, models.NewExpense{
		Description: strings.TrimSpace(in.Title),
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Notes:       in.Description,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.ID).Msg("Failed to add expense")
		return models.Expense{}, fmt.Errorf("add expense: %w", err)
	}
	added := MapRecord(rec, p.now())

	p.catMu.Lock()
	p.mu.Lock()
	if gen != p.generation {
		p.unlockAll()
		return models.Expense{}, ErrStale
	}

	next := make([]models.Expense, 0, len(p.expenses)+1)
	next = append(next, added)
	for _, e := range p.expenses {
		// a refresh may already have brought this record in
		if e.ID != added.ID {
			next = append(next, e)
		}
	}
	p.expenses = next
	p.ensureCategoryLocked(added.Category)
	notify := p.commitLocked()
	p.unlockAll()
	notify()

	log.Info().Str("user_id", identity.ID).Str("expense_id", added.ID).Msg("Expense added")
	return added, nil
}

// UpdateExpense sends only the fields set in patch and merges them into the local
// record once the API accepts them.
func (p *Provider) UpdateExpense(ctx context.Context, id string, patch models.ExpensePatch) error {
	if err := validatePatch(patch); err != nil {
		return err
	}
	if isEmptyPatch(patch) {
		return nil
	}

	p.mu.Lock()
	gen, identity, err := p.activeLocked()
	if err == nil && p.indexOfExpenseLocked(id) < 0 {
		err = fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}

	if err := p.remote.UpdateExpense(ctx, id, toUpdate(patch)); err != nil {
		log.Error().Err(err).Str("user_id", identity.ID).Str("expense_id", id).Msg("Failed to update expense")
		return fmt.Errorf("update expense: %w", err)
	}

	p.catMu.Lock()
	p.mu.Lock()
	if gen != p.generation {
		p.unlockAll()
		return ErrStale
	}
	if i := p.indexOfExpenseLocked(id); i >= 0 {
		p.expenses[i] = applyPatch(p.expenses[i], patch)
	}
	if patch.Category != nil {
		p.ensureCategoryLocked(*patch.Category)
	}
	notify := p.commitLocked()
	p.unlockAll()
	notify()

	log.Info().Str("user_id", identity.ID).Str("expense_id", id).Msg("Expense updated")
	return nil
}

// DeleteExpense removes the expense remotely, then locally. Categories are left as
// they are even if no expense uses them any more.
func (p *Provider) DeleteExpense(ctx context.Context, id string) error {
	gen, identity, err := p.active()
	if err != nil {
		return err
	}

	if err := p.remote.RemoveExpense(ctx, id); err != nil {
		log.Error().Err(err).Str("user_id", identity.ID).Str("expense_id", id).Msg("Failed to delete expense")
		return fmt.Errorf("delete expense: %w", err)
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return ErrStale
	}
	next := make([]models.Expense, 0, len(p.expenses))
	for _, e := range p.expenses {
		if e.ID != id {
			next = append(next, e)
		}
	}
	p.expenses = next
	notify := p.commitLocked()
	p.mu.Unlock()
	notify()

	log.Info().Str("user_id", identity.ID).Str("expense_id", id).Msg("Expense deleted")
	return nil
}

func (p *Provider) MarkDone(ctx context.Context, id string, done bool) error {
	gen, identity, err := p.active()
	if err != nil {
		return err
	}

	if err := p.remote.MarkAsDone(ctx, id, done); err != nil {
		log.Error().Err(err).Str("user_id", identity.ID).Str("expense_id", id).Msg("Failed to mark expense")
		return fmt.Errorf("mark expense: %w", err)
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return ErrStale
	}
	if i := p.indexOfExpenseLocked(id); i >= 0 {
		p.expenses[i].Done = done
	}
	notify := p.commitLocked()
	p.mu.Unlock()
	notify()
	return nil
}

// DeleteAllExpenses removes every expense of the signed-in user with a single
// remote call, then clears the local list. It returns how many the API deleted.
func (p *Provider) DeleteAllExpenses(ctx context.Context) (int, error) {
	p.mu.Lock()
	gen, identity, err := p.activeLocked()
	if err == nil && len(p.expenses) == 0 {
		err = ErrNotFound
	}
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}

	deleted, err := p.remote.RemoveAllExpenses(ctx)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.ID).Msg("Failed to delete all expenses")
		return 0, fmt.Errorf("delete all expenses: %w", err)
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return 0, ErrStale
	}
	p.expenses = []models.Expense{}
	notify := p.commitLocked()
	p.mu.Unlock()
	notify()

	log.Info().Str("user_id", identity.ID).Int64("deleted", deleted).Msg("All expenses deleted")
	return int(deleted), nil
}
