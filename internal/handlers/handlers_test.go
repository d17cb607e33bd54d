package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spendly/internal/models"
	"spendly/internal/services"
	"spendly/internal/utils"
)

type fakeUserService struct {
	user      *models.User
	err       error
	passwords []models.PasswordChange
}

func (f *fakeUserService) RegisterUser(_ context.Context, in *models.Register) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: primitive.NewObjectID(), Fullname: in.Fullname, Email: in.Email}, nil
}

func (f *fakeUserService) LoginUser(context.Context, *models.Login) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) ChangePassword(_ context.Context, _ primitive.ObjectID, in *models.PasswordChange) error {
	f.passwords = append(f.passwords, *in)
	return f.err
}

func (f *fakeUserService) GetTotalUsers(context.Context) (int64, error) { return 1, nil }

func (f *fakeUserService) TrackTotalUsers(context.Context, time.Duration) {}

type fakeExpenseService struct {
	records []models.ExpenseRecord
	filter  models.ExpenseFilter
	err     error
	done    map[primitive.ObjectID]bool
}

func (f *fakeExpenseService) CreateExpense(_ context.Context, userID primitive.ObjectID, in *models.NewExpense) (*models.ExpenseRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec := models.ExpenseRecord{ID: primitive.NewObjectID(), UserID: userID, Description: in.Description, Amount: in.Amount, Category: in.Category}
	f.records = append(f.records, rec)
	return &rec, nil
}

func (f *fakeExpenseService) GetExpenses(_ context.Context, _ primitive.ObjectID, filter models.ExpenseFilter) ([]models.ExpenseRecord, error) {
	f.filter = filter
	return f.records, f.err
}

func (f *fakeExpenseService) UpdateExpense(context.Context, primitive.ObjectID, primitive.ObjectID, *models.ExpenseUpdate) error {
	return f.err
}

func (f *fakeExpenseService) GetExpense(_ context.Context, _, id primitive.ObjectID) (*models.ExpenseRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, rec := range f.records {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, errors.New("expense not found")
}

func (f *fakeExpenseService) DeleteExpense(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return f.err
}

func (f *fakeExpenseService) DeleteAllExpenses(context.Context, primitive.ObjectID) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := int64(len(f.records))
	f.records = nil
	return n, nil
}

func (f *fakeExpenseService) MarkDone(_ context.Context, _, id primitive.ObjectID, done bool) error {
	if f.err != nil {
		return f.err
	}
	if f.done == nil {
		f.done = map[primitive.ObjectID]bool{}
	}
	f.done[id] = done
	return nil
}

func newAuth() services.AuthService {
	return services.NewAuthService(services.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), false), []byte("secret"))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func authed(r *http.Request, userID primitive.ObjectID) *http.Request {
	return r.WithContext(utils.WithUserID(r.Context(), userID.Hex()))
}

func TestRegister(t *testing.T) {
	h := NewUserHandler(&fakeUserService{}, newAuth())

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fullname":"Asha","email":"a@b.c","password":"secret1"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Account created successfully", body["message"])

	rec = httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cases := map[string]int{
		"user already exists with this email":       http.StatusConflict,
		"fullname, email and password are required": http.StatusBadRequest,
		"failed to create user: connection reset":   http.StatusInternalServerError,
	}
	for msg, code := range cases {
		h := NewUserHandler(&fakeUserService{err: errors.New(msg)}, newAuth())
		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
		assert.Equal(t, code, rec.Code, msg)
		body := decode(t, rec)
		assert.Equal(t, msg, body["message"])
		assert.Equal(t, false, body["success"])
	}
}

func TestLoginStartsSession(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Fullname: "Asha", Email: "a@b.c"}
	auth := newAuth()
	h := NewUserHandler(&fakeUserService{user: user}, auth)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c","password":"secret1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	u := body["user"].(map[string]interface{})
	assert.Equal(t, user.ID.Hex(), u["_id"])
	assert.Equal(t, "Asha", u["fullname"])
	assert.NotContains(t, u, "password")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	id, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), id)
}

func TestLoginRejected(t *testing.T) {
	h := NewUserHandler(&fakeUserService{err: errors.New("invalid credentials")}, newAuth())
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c","password":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout(t *testing.T) {
	h := NewUserHandler(&fakeUserService{}, newAuth())
	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decode(t, rec)["message"])
}

func TestChangePassword(t *testing.T) {
	userID := primitive.NewObjectID()
	svc := &fakeUserService{}
	h := NewUserHandler(svc, newAuth())

	rec := httptest.NewRecorder()
	h.ChangePassword(rec, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"currentPassword":"a","newPassword":"secret2"}`)), userID)
	h.ChangePassword(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.passwords, 1)
	assert.Equal(t, "secret2", svc.passwords[0].NewPassword)

	svc.err = errors.New("current password is incorrect")
	rec = httptest.NewRecorder()
	req = authed(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"currentPassword":"a","newPassword":"secret2"}`)), userID)
	h.ChangePassword(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "current password is incorrect", decode(t, rec)["message"])
}

func expenseRouter(h *ExpenseHandler, userID primitive.ObjectID) *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, authed(req, userID))
		})
	})
	r.HandleFunc("/expense/getall", h.GetAll).Methods(http.MethodGet)
	r.HandleFunc("/expense/add", h.Add).Methods(http.MethodPost)
	r.HandleFunc("/expense/update/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/expense/get/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/expense/remove/{id}", h.Remove).Methods(http.MethodDelete)
	r.HandleFunc("/expense/removeall", h.RemoveAll).Methods(http.MethodDelete)
	r.HandleFunc("/expense/{id}/done", h.MarkDone).Methods(http.MethodPut)
	return r
}

func TestExpenseHandlers(t *testing.T) {
	userID := primitive.NewObjectID()
	svc := &fakeExpenseService{}
	router := expenseRouter(NewExpenseHandler(svc), userID)

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	rec := serve(http.MethodGet, "/expense/getall", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["expense"], "empty list, not null")

	rec = serve(http.MethodPost, "/expense/add", `{"description":"Lunch","amount":12.5,"category":"Food"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	added := decode(t, rec)["expense"].(map[string]interface{})
	assert.Equal(t, "Lunch", added["description"])
	id := added["_id"].(string)

	rec = serve(http.MethodGet, "/expense/getall?category=Food&done=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["expense"], 1)
	assert.Equal(t, "Food", svc.filter.Category)
	require.NotNil(t, svc.filter.Done)
	assert.False(t, *svc.filter.Done)

	rec = serve(http.MethodGet, "/expense/get/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lunch", decode(t, rec)["expense"].(map[string]interface{})["description"])

	rec = serve(http.MethodGet, "/expense/get/"+primitive.NewObjectID().Hex(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(http.MethodGet, "/expense/getall?done=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(http.MethodPut, "/expense/update/"+id, `{"amount":15}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(http.MethodPut, "/expense/update/not-an-id", `{"amount":15}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(http.MethodPut, "/expense/"+id+"/done", `{"done":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	oid, _ := primitive.ObjectIDFromHex(id)
	assert.True(t, svc.done[oid])

	rec = serve(http.MethodDelete, "/expense/remove/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = serve(http.MethodDelete, "/expense/removeall", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["deleted"])
	assert.Empty(t, svc.records)
}

func TestExpenseErrorStatus(t *testing.T) {
	userID := primitive.NewObjectID()
	id := primitive.NewObjectID().Hex()

	cases := map[string]int{
		"expense not found":                             http.StatusNotFound,
		"description and category are required":         http.StatusBadRequest,
		"invalid amount: must be a non-negative number": http.StatusBadRequest,
		"failed to update expense":                      http.StatusInternalServerError,
	}
	for msg, code := range cases {
		router := expenseRouter(NewExpenseHandler(&fakeExpenseService{err: errors.New(msg)}), userID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/expense/update/"+id, strings.NewReader(`{"amount":1}`)))
		assert.Equal(t, code, rec.Code, msg)
		assert.Equal(t, msg, decode(t, rec)["message"])
	}
}

type fakeDB struct {
	health map[string]string
}

func (f *fakeDB) Health() map[string]string         { return f.health }
func (f *fakeDB) Client() *mongo.Client               { return nil }
func (f *fakeDB) Database() *mongo.Database           { return nil }
func (f *fakeDB) EnsureIndexes(context.Context) error { return nil }
func (f *fakeDB) Close() error                        { return nil }

func TestHealthHandler(t *testing.T) {
	h := NewCommonHandler(&fakeDB{health: map[string]string{"message": "It's healthy"}})
	rec := httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h = NewCommonHandler(&fakeDB{health: map[string]string{"message": "db down", "error": "timeout"}})
	rec = httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
