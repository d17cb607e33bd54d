package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"spendly/internal/models"
	"spendly/internal/services"
	"spendly/internal/utils"
)

type ExpenseHandler struct {
	expenseService services.ExpenseService
}

func NewExpenseHandler(expenseService services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func expenseErrorStatus(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetAll lists the caller's expenses. Optional query parameters: category, done.
func (h *ExpenseHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	filter := models.ExpenseFilter{Category: strings.TrimSpace(r.URL.Query().Get("category"))}
	if raw := r.URL.Query().Get("done"); raw != "" {
		done, err := strconv.ParseBool(raw)
		if err != nil {
			utils.SendJSONError(w, "Invalid done filter", http.StatusBadRequest)
			return
		}
		filter.Done = &done
	}

	expenses, err := h.expenseService.GetExpenses(r.Context(), userID, filter)
	if err != nil {
		utils.SendJSONError(w, "Failed to fetch expenses", http.StatusInternalServerError)
		return
	}
	if expenses == nil {
		expenses = []models.ExpenseRecord{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"expense": expenses,
		"success": true,
	})
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}
	expenseID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	expense, err := h.expenseService.GetExpense(r.Context(), userID, expenseID)
	if err != nil {
		utils.SendJSONError(w, err.Error(), expenseErrorStatus(err))
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"expense": expense,
		"success": true,
	})
}

func (h *ExpenseHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	var in models.NewExpense
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error().Err(err).Msg("Invalid JSON payload for AddExpense")
		utils.SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	expense, err := h.expenseService.CreateExpense(r.Context(), userID, &in)
	if err != nil {
		utils.SendJSONError(w, err.Error(), expenseErrorStatus(err))
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Expense added successfully",
		"expense": expense,
		"success": true,
	})
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}
	expenseID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	var in models.ExpenseUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error().Err(err).Msg("Invalid JSON payload for UpdateExpense")
		utils.SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.expenseService.UpdateExpense(r.Context(), userID, expenseID, &in); err != nil {
		utils.SendJSONError(w, err.Error(), expenseErrorStatus(err))
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Expense updated successfully",
		"success": true,
	})
}

func (h *ExpenseHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}
	expenseID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	if err := h.expenseService.DeleteExpense(r.Context(), userID, expenseID); err != nil {
		utils.SendJSONError(w, err.Error(), expenseErrorStatus(err))
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Expense removed successfully",
		"success": true,
	})
}

// RemoveAll deletes every expense the caller owns.
func (h *ExpenseHandler) RemoveAll(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	deleted, err := h.expenseService.DeleteAllExpenses(r.Context(), userID)
	if err != nil {
		utils.SendJSONError(w, "Failed to delete expenses", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All expenses removed successfully",
		"deleted": deleted,
		"success": true,
	})
}

func (h *ExpenseHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}
	expenseID, err := utils.GetObjectIDFromVars(w, r, "id")
	if err != nil {
		return
	}

	var in models.DoneUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.expenseService.MarkDone(r.Context(), userID, expenseID, in.Done); err != nil {
		utils.SendJSONError(w, err.Error(), expenseErrorStatus(err))
		return
	}

	msg := "Expense marked as pending"
	if in.Done {
		msg = "Expense marked as done"
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": msg,
		"success": true,
	})
}
