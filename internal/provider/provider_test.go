package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendly/internal/categories"
	"spendly/internal/models"
	"spendly/internal/prefs"
)

var errRemote = errors.New("remote unavailable")

// fakeRemote is an in-memory ExpenseStore. Records are kept newest first like the API.
type fakeRemote struct {
	mu      sync.Mutex
	records []models.ExpenseRecord
	failGet error
	failAll error
	gate    chan struct{}
	onGet   func()
	updates []models.ExpenseUpdate
	now     time.Time
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeRemote) seed(desc, category string, amount float64, created time.Time) models.ExpenseRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := models.ExpenseRecord{
		ID:          primitive.NewObjectID(),
		Description: desc,
		Category:    category,
		Amount:      amount,
		CreatedAt:   created,
	}
	f.records = append([]models.ExpenseRecord{rec}, f.records...)
	return rec
}

func (f *fakeRemote) GetExpenses(ctx context.Context, _ models.ExpenseFilter) ([]models.ExpenseRecord, error) {
	f.mu.Lock()
	gate, onGet := f.gate, f.onGet
	f.mu.Unlock()
	if onGet != nil {
		onGet()
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	return append([]models.ExpenseRecord(nil), f.records...), nil
}

func (f *fakeRemote) AddExpense(_ context.Context, in models.NewExpense) (models.ExpenseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return models.ExpenseRecord{}, f.failAll
	}
	rec := models.ExpenseRecord{
		ID:          primitive.NewObjectID(),
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		Notes:       in.Notes,
		CreatedAt:   f.now,
	}
	f.records = append([]models.ExpenseRecord{rec}, f.records...)
	return rec, nil
}

func (f *fakeRemote) UpdateExpense(_ context.Context, id string, in models.ExpenseUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.updates = append(f.updates, in)
	return nil
}

func (f *fakeRemote) RemoveExpense(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for i, r := range f.records {
		if r.ID.Hex() == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("expense not found")
}

func (f *fakeRemote) RemoveAllExpenses(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	n := int64(len(f.records))
	f.records = nil
	return n, nil
}

func (f *fakeRemote) MarkAsDone(_ context.Context, id string, done bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failAll
}

type fixture struct {
	remote   *fakeRemote
	repo     *prefs.Repository
	provider *Provider
	ids      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{remote: newFakeRemote(), repo: prefs.NewRepository(prefs.NewMemoryStore())}
	f.provider = New(f.remote, f.repo,
		WithClock(func() time.Time { return f.remote.now }),
		WithIDGenerator(func() string {
			f.ids++
			return fmt.Sprintf("cat-%d", f.ids)
		}),
	)
	return f
}

var asha = &models.Identity{ID: "u1", Email: "asha@example.com", Name: "Asha"}

func names(list []models.Category) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Name)
	}
	return out
}

func TestSetIdentityLoadsExpensesAndCategories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	day := time.Date(2024, 3, 2, 23, 30, 0, 0, time.UTC)
	f.remote.seed("Lunch", "Food", 10, day)
	f.remote.seed("Rent", "Rent", 900, day)
	f.remote.seed("Snack", "Food", 5, time.Time{})

	assert.Equal(t, StateUnauthenticated, f.provider.State())
	require.NoError(t, f.provider.SetIdentity(ctx, asha))

	snap := f.provider.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "u1", snap.Identity.ID)
	require.Len(t, snap.Expenses, 3)
	assert.Equal(t, "Snack", snap.Expenses[0].Title)
	assert.Equal(t, "2024-03-10", snap.Expenses[0].Date, "missing creation time falls back to now")
	assert.Equal(t, "2024-03-02", snap.Expenses[2].Date)
	assert.Equal(t, []string{"Food", "Rent"}, names(snap.Categories))
	assert.Equal(t, categories.Palette[0], snap.Categories[0].Color)
	assert.Equal(t, categories.Palette[1], snap.Categories[1].Color)
}

func TestStoredCustomCategoryWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)
	custom := []models.Category{
		{ID: "c-food", Name: "Food", Color: "C2", Icon: "utensils"},
		{ID: "c-gift", Name: "Gifts", Color: "C3", Icon: "gift"},
	}
	require.NoError(t, f.repo.SaveCustomCategories(ctx, asha.ID, custom))

	require.NoError(t, f.provider.SetIdentity(ctx, asha))
	snap := f.provider.Snapshot()
	assert.Equal(t, custom, snap.Categories)
}

func TestFetchFailureLeavesCustomCategoriesOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)
	gift := models.Category{ID: "c-gift", Name: "Gifts", Color: "C3", Icon: "gift"}
	require.NoError(t, f.repo.SaveCustomCategories(ctx, asha.ID, []models.Category{gift}))
	require.NoError(t, f.provider.SetIdentity(ctx, asha))
	require.Len(t, f.provider.Snapshot().Categories, 2)

	f.remote.failGet = errRemote
	err := f.provider.Refresh(ctx)
	assert.ErrorIs(t, err, errRemote)

	snap := f.provider.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Empty(t, snap.Expenses)
	assert.Equal(t, []models.Category{gift}, snap.Categories)
}

func TestSignOutClearsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)
	require.NoError(t, f.provider.SetIdentity(ctx, asha))

	require.NoError(t, f.provider.SetIdentity(ctx, nil))
	snap := f.provider.Snapshot()
	assert.Equal(t, StateUnauthenticated, snap.State)
	assert.Nil(t, snap.Identity)
	assert.Empty(t, snap.Expenses)
	assert.Empty(t, snap.Categories)

	assert.ErrorIs(t, f.provider.Refresh(ctx), ErrNotSignedIn)
	_, err := f.provider.AddExpense(ctx, models.ExpenseInput{Title: "x", Category: "y", Amount: 1})
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestSlowFetchForPreviousIdentityIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)

	started := make(chan struct{})
	f.remote.gate = make(chan struct{})
	f.remote.onGet = func() { close(started) }

	done := make(chan error, 1)
	go func() { done <- f.provider.SetIdentity(ctx, asha) }()

	<-started
	assert.Equal(t, StateLoading, f.provider.State())
	require.NoError(t, f.provider.SetIdentity(ctx, nil))
	close(f.remote.gate)

	assert.ErrorIs(t, <-done, ErrStale)
	snap := f.provider.Snapshot()
	assert.Equal(t, StateUnauthenticated, snap.State)
	assert.Empty(t, snap.Expenses)
}

func TestAddExpense(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)
	require.NoError(t, f.provider.SetIdentity(ctx, asha))

	t.Run("validation happens before any remote call", func(t *testing.T) {
		before := len(f.remote.records)
		for _, in := range []models.ExpenseInput{
			{Title: " ", Category: "Food", Amount: 1},
			{Title: "x", Category: "", Amount: 1},
			{Title: "x", Category: "Food", Amount: -1},
			{Title: "x", Category: "Food", Amount: 1, Date: "03/02/2024"},
		} {
			_, err := f.provider.AddExpense(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		}
		assert.Len(t, f.remote.records, before)
	})

	t.Run("prepends and derives a new category", func(t *testing.T) {
		added, err := f.provider.AddExpense(ctx, models.ExpenseInput{Title: "Taxi", Category: "Travel", Amount: 12, Description: "airport"})
		require.NoError(t, err)
		assert.Equal(t, "airport", added.Description)

		snap := f.provider.Snapshot()
		require.Len(t, snap.Expenses, 2)
		assert.Equal(t, added.ID, snap.Expenses[0].ID)
		assert.Equal(t, []string{"Food", "Travel"}, names(snap.Categories))
		assert.Equal(t, categories.Palette[1], snap.Categories[1].Color)
	})

	t.Run("refresh after add keeps one record per id", func(t *testing.T) {
		require.NoError(t, f.provider.Refresh(ctx))
		snap := f.provider.Snapshot()
		seen := map[string]int{}
		for _, e := range snap.Expenses {
			seen[e.ID]++
		}
		assert.Len(t, snap.Expenses, 2)
		for id, n := range seen {
			assert.Equal(t, 1, n, id)
		}
	})

	t.Run("remote rejection leaves state untouched", func(t *testing.T) {
		before := f.provider.Snapshot()
		f.remote.failAll = errRemote
		defer func() { f.remote.failAll = nil }()

		_, err := f.provider.AddExpense(ctx, models.ExpenseInput{Title: "Gym", Category: "Health", Amount: 30})
		assert.ErrorIs(t, err, errRemote)
		assert.Equal(t, before, f.provider.Snapshot())
	})
}

func TestUpdateExpense(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := f.remote.seed("Lunch", "Food", 10, f.remote.now)
	require.NoError(t, f.provider.SetIdentity(ctx, asha))
	id := rec.ID.Hex()

	amount := 14.0
	category := "Dining"
	require.NoError(t, f.provider.UpdateExpense(ctx, id, models.ExpensePatch{Amount: &amount, Category: &category}))

	require.Len(t, f.remote.updates, 1)
	sent := f.remote.updates[0]
	assert.Nil(t, sent.Description, "unchanged fields are not sent")
	assert.Equal(t, 14.0, *sent.Amount)

	snap := f.provider.Snapshot()
	assert.Equal(t, 14.0, snap.Expenses[0].Amount)
	assert.Equal(t, "Lunch", snap.Expenses[0].Title)
	assert.Equal(t, []string{"Food", "Dining"}, names(snap.Categories))

	err := f.provider.UpdateExpense(ctx, "missing", models.ExpensePatch{Amount: &amount})
	assert.ErrorIs(t, err, ErrNotFound)

	empty := ""
	err = f.provider.UpdateExpense(ctx, id, models.ExpensePatch{Title: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, f.provider.UpdateExpense(ctx, id, models.ExpensePatch{}))
	assert.Len(t, f.remote.updates, 1)
}

func TestDeleteExpenseAndMarkDone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	keep := f.remote.seed("Lunch", "Food", 10, f.remote.now)
	drop := f.remote.seed("Rent", "Rent", 900, f.remote.now)
	require.NoError(t, f.provider.SetIdentity(ctx, asha))

	require.NoError(t, f.provider.MarkDone(ctx, keep.ID.Hex(), true))
	require.NoError(t, f.provider.DeleteExpense(ctx, drop.ID.Hex()))

	snap := f.provider.Snapshot()
	require.Len(t, snap.Expenses, 1)
	assert.True(t, snap.Expenses[0].Done)
	assert.Equal(t, []string{"Food", "Rent"}, names(snap.Categories), "deleting an expense keeps its category")

	f.remote.failAll = errRemote
	assert.ErrorIs(t, f.provider.DeleteExpense(ctx, keep.ID.Hex()), errRemote)
	assert.Len(t, f.provider.Snapshot().Expenses, 1)
}

func TestCategoryMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)
	require.NoError(t, f.provider.SetIdentity(ctx, asha))

	gifts, err := f.provider.AddCategory(ctx, models.CategoryInput{Name: "Gifts", Icon: "gift"})
	require.NoError(t, err)
	assert.Equal(t, "cat-1", gifts.ID)
	assert.Equal(t, categories.Palette[1], gifts.Color)

	_, err = f.provider.AddCategory(ctx, models.CategoryInput{Name: "Food"})
	assert.ErrorIs(t, err, ErrCategoryExists)
	_, err = f.provider.AddCategory(ctx, models.CategoryInput{Name: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := f.repo.LoadCustomCategories(ctx, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{gifts}, stored, "only custom categories are stored")

	color := "C2"
	food, err := f.provider.UpdateCategory(ctx, "Food", models.CategoryUpdate{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "cat-2", food.ID, "editing a derived category makes it custom")
	assert.Equal(t, "C2", food.Color)

	stored, err = f.repo.LoadCustomCategories(ctx, asha.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	require.NoError(t, f.provider.Refresh(ctx))
	c, ok := categories.FindByName(f.provider.Snapshot().Categories, "Food")
	require.True(t, ok)
	assert.Equal(t, "C2", c.Color, "custom edit survives a refresh")

	require.NoError(t, f.provider.DeleteCategory(ctx, food.ID))
	snap := f.provider.Snapshot()
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, "Food", snap.Expenses[0].Category, "deleting a category never touches expenses")
	_, ok = categories.FindByName(snap.Categories, "Food")
	assert.False(t, ok)

	assert.ErrorIs(t, f.provider.DeleteCategory(ctx, "nope"), ErrNotFound)
}

func TestCategoryMutationsNeedIdentity(t *testing.T) {
	f := newFixture(t)
	_, err := f.provider.AddCategory(context.Background(), models.CategoryInput{Name: "Gifts"})
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)

	var states []State
	cancel := f.provider.Subscribe(func(s Snapshot) { states = append(states, s.State) })

	require.NoError(t, f.provider.SetIdentity(ctx, asha))
	assert.Equal(t, []State{StateLoading, StateReady}, states)

	cancel()
	cancel()
	require.NoError(t, f.provider.SetIdentity(ctx, nil))
	assert.Len(t, states, 2)
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)
	require.NoError(t, f.provider.SetIdentity(ctx, asha))

	snap := f.provider.Snapshot()
	snap.Expenses[0].Title = "changed"
	snap.Categories[0].Name = "changed"

	again := f.provider.Snapshot()
	assert.Equal(t, "Lunch", again.Expenses[0].Title)
	assert.Equal(t, "Food", again.Categories[0].Name)
}

func TestMapRecord(t *testing.T) {
	rec := models.ExpenseRecord{
		ID:          primitive.NewObjectID(),
		Description: "Cab",
		Notes:       "to airport",
		Amount:      20,
		Category:    "Travel",
		Done:        true,
		CreatedAt:   time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC),
	}
	e := MapRecord(rec, time.Now())
	assert.Equal(t, rec.ID.Hex(), e.ID)
	assert.Equal(t, "Cab", e.Title)
	assert.Equal(t, "to airport", e.Description)
	assert.Equal(t, "2024-05-01", e.Date)
	assert.True(t, e.Done)

	rec.Notes = ""
	assert.Equal(t, "Cab", MapRecord(rec, time.Now()).Description)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestDeleteAllExpenses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)
	f.remote.seed("Rent", "Rent", 900, f.remote.now)
	require.NoError(t, f.provider.SetIdentity(ctx, asha))

	f.remote.failAll = errRemote
	_, err := f.provider.DeleteAllExpenses(ctx)
	assert.ErrorIs(t, err, errRemote)
	assert.Len(t, f.provider.Snapshot().Expenses, 2, "local list kept when the API refuses")
	f.remote.failAll = nil

	n, err := f.provider.DeleteAllExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	snap := f.provider.Snapshot()
	assert.Empty(t, snap.Expenses)
	assert.Equal(t, []string{"Food", "Rent"}, names(snap.Categories), "categories are left alone")

	_, err = f.provider.DeleteAllExpenses(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListenerMayCallBackIntoProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.seed("Lunch", "Food", 10, f.remote.now)

	var once sync.Once
	var listenerErr error
	cancel := f.provider.Subscribe(func(s Snapshot) {
		if s.State != StateReady {
			return
		}
		once.Do(func() {
			_, listenerErr = f.provider.AddCategory(ctx, models.CategoryInput{Name: "Gifts"})
		})
	})
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.provider.SetIdentity(ctx, asha) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("SetIdentity did not return while a listener was adding a category")
	}
	require.NoError(t, listenerErr)
	assert.Contains(t, names(f.provider.Snapshot().Categories), "Gifts")

	var onExpense sync.Once
	var deleteErr error
	cancelExpense := f.provider.Subscribe(func(s Snapshot) {
		for _, e := range s.Expenses {
			if e.Title == "Book" {
				onExpense.Do(func() { deleteErr = f.provider.DeleteCategory(ctx, "cat-1") })
			}
		}
	})
	defer cancelExpense()

	_, err := f.provider.AddExpense(ctx, models.ExpenseInput{Title: "Book", Amount: 5, Category: "Food"})
	require.NoError(t, err)
	require.NoError(t, deleteErr)
	assert.NotContains(t, names(f.provider.Snapshot().Categories), "Gifts")
}
