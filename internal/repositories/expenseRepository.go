package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spendly/internal/database"
	"spendly/internal/models"
	"spendly/internal/utils"
)

// ExpenseRepository stores expenses. Every call is scoped to the owning user, so
// an id belonging to someone else behaves as if it did not exist.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *models.ExpenseRecord) (*models.ExpenseRecord, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID, filter models.ExpenseFilter) ([]models.ExpenseRecord, error)
	FindByID(ctx context.Context, id, userID primitive.ObjectID) (*models.ExpenseRecord, error)
	Update(ctx context.Context, id, userID primitive.ObjectID, fields bson.M) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) (*mongo.DeleteResult, error)
	DeleteAllByUser(ctx context.Context, userID primitive.ObjectID) (*mongo.DeleteResult, error)
}

type expenseRepository struct {
	db database.Service
}

func NewExpenseRepository(db database.Service) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.ExpensesCollection)
}

func (r *expenseRepository) Create(ctx context.Context, expense *models.ExpenseRecord) (*models.ExpenseRecord, error) {
	queryType := "create"
	repository := "expense"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	if expense.ID.IsZero() {
		expense.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	expense.CreatedAt = now
	expense.UpdatedAt = now

	_, err := r.collection().InsertOne(ctx, expense)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("user_id", expense.UserID.Hex()).Msg("Failed to insert expense into database")
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	return expense, nil
}

// FindByUser lists a user's expenses, newest first.
func (r *expenseRepository) FindByUser(ctx context.Context, userID primitive.ObjectID, filter models.ExpenseFilter) ([]models.ExpenseRecord, error) {
	queryType := "findByUser"
	repository := "expense"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	query := bson.M{"userId": userID}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Done != nil {
		query["done"] = *filter.Done
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection().Find(ctx, query, opts)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to find expenses")
		return nil, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	defer cursor.Close(ctx)

	expenses := []models.ExpenseRecord{}
	if err := cursor.All(ctx, &expenses); err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to decode expenses")
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	return expenses, nil
}

func (r *expenseRepository) FindByID(ctx context.Context, id, userID primitive.ObjectID) (*models.ExpenseRecord, error) {
	queryType := "findById"
	repository := "expense"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	var expense models.ExpenseRecord
	err := r.collection().FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&expense)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, err // Can be mongo.ErrNoDocuments
	}
	return &expense, nil
}

func (r *expenseRepository) Update(ctx context.Context, id, userID primitive.ObjectID, fields bson.M) (*mongo.UpdateResult, error) {
	queryType := "update"
	repository := "expense"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": id, "userId": userID}, bson.M{"$set": set})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("expense_id", id.Hex()).Msg("Error updating expense")
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	return result, nil
}

func (r *expenseRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) (*mongo.DeleteResult, error) {
	queryType := "delete"
	repository := "expense"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("expense_id", id.Hex()).Msg("Error deleting expense")
		return nil, fmt.Errorf("failed to delete expense: %w", err)
	}
	return result, nil
}

func (r *expenseRepository) DeleteAllByUser(ctx context.Context, userID primitive.ObjectID) (*mongo.DeleteResult, error) {
	queryType := "deleteMany"
	repository := "expense"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	result, err := r.collection().DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Error deleting expenses")
		return nil, fmt.Errorf("failed to delete expenses: %w", err)
	}
	return result, nil
}
