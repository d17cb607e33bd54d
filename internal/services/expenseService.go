package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spendly/internal/metrics"
	"spendly/internal/models"
	"spendly/internal/repositories"
)

type ExpenseService interface {
	CreateExpense(ctx context.Context, userID primitive.ObjectID, in *models.NewExpense) (*models.ExpenseRecord, error)
	GetExpenses(ctx context.Context, userID primitive.ObjectID, filter models.ExpenseFilter) ([]models.ExpenseRecord, error)
	GetExpense(ctx context.Context, userID, id primitive.ObjectID) (*models.ExpenseRecord, error)
	UpdateExpense(ctx context.Context, userID, id primitive.ObjectID, in *models.ExpenseUpdate) error
	DeleteExpense(ctx context.Context, userID, id primitive.ObjectID) error
	DeleteAllExpenses(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkDone(ctx context.Context, userID, id primitive.ObjectID, done bool) error
}

type expenseService struct {
	expenseRepo repositories.ExpenseRepository
	now         func() time.Time
}

func NewExpenseService(expenseRepo repositories.ExpenseRepository) ExpenseService {
	return &expenseService{expenseRepo: expenseRepo, now: time.Now}
}

// parseExpenseDate accepts a calendar date or an RFC 3339 timestamp. An empty value
// means now.
func parseExpenseDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(models.DateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t.UTC(), nil
}

func validAmount(amount float64) bool {
	return amount >= 0 && !math.IsNaN(amount) && !math.IsInf(amount, 0)
}

func (s *expenseService) CreateExpense(ctx context.Context, userID primitive.ObjectID, in *models.NewExpense) (*models.ExpenseRecord, error) {
	description := strings.TrimSpace(in.Description)
	category := strings.TrimSpace(in.Category)
	if description == "" || category == "" {
		log.Warn().Str("user_id", userID.Hex()).Msg("Description and category are required to add an expense")
		return nil, fmt.Errorf("description and category are required")
	}
	if !validAmount(in.Amount) {
		return nil, fmt.Errorf("invalid amount: must be a non-negative number")
	}
	date, err := parseExpenseDate(in.Date, s.now())
	if err != nil {
		return nil, err
	}

	expense := &models.ExpenseRecord{
		UserID:      userID,
		Description: description,
		Amount:      in.Amount,
		Category:    category,
		Date:        date,
		Notes:       strings.TrimSpace(in.Notes),
	}
	created, err := s.expenseRepo.Create(ctx, expense)
	if err != nil {
		return nil, err
	}

	metrics.ExpenseCreatedTotal.Inc()
	metrics.ExpenseAmountTotal.Add(created.Amount)
	log.Info().Str("user_id", userID.Hex()).Str("expense_id", created.ID.Hex()).Msg("Expense created")
	return created, nil
}

func (s *expenseService) GetExpenses(ctx context.Context, userID primitive.ObjectID, filter models.ExpenseFilter) ([]models.ExpenseRecord, error) {
	log.Debug().Str("user_id", userID.Hex()).Str("category", filter.Category).Msg("Fetching expenses")
	return s.expenseRepo.FindByUser(ctx, userID, filter)
}

func (s *expenseService) GetExpense(ctx context.Context, userID, id primitive.ObjectID) (*models.ExpenseRecord, error) {
	expense, err := s.expenseRepo.FindByID(ctx, id, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("expense not found")
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Str("expense_id", id.Hex()).Msg("Failed to fetch expense")
		return nil, fmt.Errorf("failed to fetch expense: %w", err)
	}
	return expense, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, userID, id primitive.ObjectID, in *models.ExpenseUpdate) error {
	if in.IsEmpty() {
		return fmt.Errorf("at least one field is required for update")
	}

	fields := bson.M{}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		if v == "" {
			return fmt.Errorf("description is required")
		}
		fields["description"] = v
	}
	if in.Category != nil {
		v := strings.TrimSpace(*in.Category)
		if v == "" {
			return fmt.Errorf("category is required")
		}
		fields["category"] = v
	}
	if in.Amount != nil {
		if !validAmount(*in.Amount) {
			return fmt.Errorf("invalid amount: must be a non-negative number")
		}
		fields["amount"] = *in.Amount
	}
	if in.Date != nil {
		if strings.TrimSpace(*in.Date) == "" {
			return fmt.Errorf("date is required")
		}
		date, err := parseExpenseDate(*in.Date, s.now())
		if err != nil {
			return err
		}
		fields["date"] = date
	}
	if in.Notes != nil {
		fields["notes"] = strings.TrimSpace(*in.Notes)
	}

	result, err := s.expenseRepo.Update(ctx, id, userID, fields)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		log.Warn().Str("user_id", userID.Hex()).Str("expense_id", id.Hex()).Msg("Expense not found for update")
		return fmt.Errorf("expense not found")
	}

	metrics.ExpenseUpdatedTotal.Inc()
	log.Info().Str("user_id", userID.Hex()).Str("expense_id", id.Hex()).Msg("Expense updated")
	return nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, userID, id primitive.ObjectID) error {
	result, err := s.expenseRepo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		log.Warn().Str("user_id", userID.Hex()).Str("expense_id", id.Hex()).Msg("Expense not found for delete")
		return fmt.Errorf("expense not found")
	}

	metrics.ExpenseDeletedTotal.Inc()
	log.Info().Str("user_id", userID.Hex()).Str("expense_id", id.Hex()).Msg("Expense deleted")
	return nil
}

// DeleteAllExpenses removes every expense the user owns in one query. Deleting
// nothing is not an error.
func (s *expenseService) DeleteAllExpenses(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := s.expenseRepo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	metrics.ExpenseDeletedTotal.Add(float64(result.DeletedCount))
	log.Info().Str("user_id", userID.Hex()).Int64("deleted", result.DeletedCount).Msg("All expenses deleted")
	return result.DeletedCount, nil
}

func (s *expenseService) MarkDone(ctx context.Context, userID, id primitive.ObjectID, done bool) error {
	result, err := s.expenseRepo.Update(ctx, id, userID, bson.M{"done": done})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("expense not found")
	}
	log.Info().Str("user_id", userID.Hex()).Str("expense_id", id.Hex()).Bool("done", done).Msg("Expense marked")
	return nil
}
