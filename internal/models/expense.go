package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExpenseRecord is the stored expense document and also its wire form.
type ExpenseRecord struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID      primitive.ObjectID `json:"userId" bson:"userId"`
	Description string             `json:"description" bson:"description"`
	Amount      float64            `json:"amount" bson:"amount"`
	Category    string             `json:"category" bson:"category"`
	Date        time.Time          `json:"date" bson:"date"`
	Notes       string             `json:"notes" bson:"notes"`
	Done        bool               `json:"done" bson:"done"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NewExpense is the body of an add request. Date is a calendar date (2006-01-02)
// or an RFC 3339 timestamp.
type NewExpense struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// ExpenseUpdate carries only the fields that changed.
type ExpenseUpdate struct {
	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Date        *string  `json:"date,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

func (u ExpenseUpdate) IsEmpty() bool {
	return u.Description == nil && u.Amount == nil && u.Category == nil && u.Date == nil && u.Notes == nil
}

type DoneUpdate struct {
	Done bool `json:"done"`
}

type ExpenseFilter struct {
	Category string
	Done     *bool
}

// Expense is the client-side shape the views work with.
type Expense struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description,omitempty"`
	Done        bool    `json:"done,omitempty"`
}

// ExpenseInput is what a user fills in to record a new expense.
type ExpenseInput struct {
	Title       string
	Amount      float64
	Category    string
	Date        string
	Description string
}

// ExpensePatch is a partial client-side edit; nil fields are left alone.
type ExpensePatch struct {
	Title       *string
	Amount      *float64
	Category    *string
	Date        *string
	Description *string
}

// DateLayout is the calendar-date format used for Expense.Date.
const DateLayout = "2006-01-02"
