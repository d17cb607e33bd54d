package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// User Activity Metrics
	NewUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spendly_new_users_total",
		Help: "Total number of new user registrations.",
	})
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spendly_login_attempts_total",
		Help: "Total number of login attempts (successful and failed).",
	}, []string{"status"}) // status: "success" or "failed"
	PasswordChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spendly_password_changes_total",
		Help: "Total number of password change attempts.",
	}, []string{"status"})
	TotalUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spendly_total_users",
		Help: "Total number of registered users in the application.",
	})

	// Expense Metrics
	ExpenseCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spendly_expense_created_total",
		Help: "Total number of expenses recorded.",
	})
	ExpenseUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spendly_expense_updated_total",
		Help: "Total number of expense edits.",
	})
	ExpenseDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spendly_expense_deleted_total",
		Help: "Total number of expenses deleted.",
	})
	// Category names are free-form user input, so amounts are not split by them.
	ExpenseAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spendly_expense_amount_total",
		Help: "Sum of recorded expense amounts.",
	})
)
