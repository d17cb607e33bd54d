// Package provider holds the signed-in user's expenses and categories in memory and
// keeps them consistent with the API and the stored custom categories.
//
// Expense mutations go to the API first and are applied locally only once it
// confirms them. Category mutations are local and persisted through prefs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"spendly/internal/categories"
	"spendly/internal/models"
	"spendly/internal/prefs"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotSignedIn    = errors.New("not signed in")
	ErrNotFound       = errors.New("not found")
	ErrCategoryExists = errors.New("category already exists")
	// ErrStale is returned when the identity changed while an operation was in flight.
	// The operation's result was dropped.
	ErrStale = errors.New("result superseded by identity change")
)

type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ExpenseStore is the remote side of the provider. *apiclient.Client implements it.
type ExpenseStore interface {
	GetExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.ExpenseRecord, error)
	AddExpense(ctx context.Context, in models.NewExpense) (models.ExpenseRecord, error)
	UpdateExpense(ctx context.Context, id string, in models.ExpenseUpdate) error
	RemoveExpense(ctx context.Context, id string) error
	RemoveAllExpenses(ctx context.Context) (int64, error)
	MarkAsDone(ctx context.Context, id string, done bool) error
}

// Snapshot is a copy of the provider state; callers may keep and modify it.
type Snapshot struct {
	State      State
	Identity   *models.Identity
	Expenses   []models.Expense
	Categories []models.Category
}

type Option func(*Provider)

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithIDGenerator sets how ids for user-created categories are made.
func WithIDGenerator(gen func() string) Option {
	return func(p *Provider) { p.newID = gen }
}

type Provider struct {
	remote ExpenseStore
	prefs  *prefs.Repository
	now    func() time.Time
	newID  func() string

	// catMu serializes every change to categories that involves persisting them,
	// so the stored custom list and the in-memory list move together.
	catMu sync.Mutex

	mu         sync.Mutex
	state      State
	identity   *models.Identity
	generation uint64
	expenses   []models.Expense
	categories []models.Category

	listeners    map[int]func(Snapshot)
	nextListener int
}

func New(remote ExpenseStore, repo *prefs.Repository, opts ...Option) *Provider {
	p := &Provider{
		remote:     remote,
		prefs:      repo,
		now:        time.Now,
		newID:      uuid.NewString,
		state:      StateUnauthenticated,
		expenses:   []models.Expense{},
		categories: []models.Category{},
		listeners:  make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Provider) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      p.state,
		Expenses:   append([]models.Expense(nil), p.expenses...),
		Categories: append([]models.Category(nil), p.categories...),
	}
	if s.Expenses == nil {
		s.Expenses = []models.Expense{}
	}
	if s.Categories == nil {
		s.Categories = []models.Category{}
	}
	if p.identity != nil {
		id := *p.identity
		s.Identity = &id
	}
	return s
}

// Subscribe registers fn to be called with a fresh snapshot after every change.
// It is meant for long-lived front-ends that keep a view open across several
// mutations; one-shot callers such as expensectl read Snapshot instead.
//
// Calls happen on the goroutine that made the change, after the provider has
// released its locks, so fn may call any Provider method.
func (p *Provider) Subscribe(fn func(Snapshot)) (cancel func()) {
	p.mu.Lock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// commitLocked captures what listeners need. It must be called with mu held; the
// returned func is then run after unlocking.
func (p *Provider) commitLocked() func() {
	snap := p.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}

// unlockAll releases mu and then catMu. Listeners must only run after it, since
// they may call back into the provider.
func (p *Provider) unlockAll() {
	p.mu.Unlock()
	p.catMu.Unlock()
}

// SetIdentity switches the active user. Both collections are cleared straight away.
// A nil identity signs out; otherwise the user's expenses are fetched before it
// returns. Any operation still running for the previous identity is discarded.
func (p *Provider) SetIdentity(ctx context.Context, identity *models.Identity) error {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.expenses = []models.Expense{}
	p.categories = []models.Category{}

	if identity == nil {
		p.identity = nil
		p.state = StateUnauthenticated
		notify := p.commitLocked()
		p.mu.Unlock()
		notify()
		log.Debug().Msg("Provider cleared for sign-out")
		return nil
	}

	id := *identity
	p.identity = &id
	p.state = StateLoading
	notify := p.commitLocked()
	p.mu.Unlock()
	notify()

	return p.load(ctx, gen, id)
}

// Refresh re-fetches expenses for the active identity without clearing first.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if p.identity == nil {
		p.mu.Unlock()
		return ErrNotSignedIn
	}
	gen := p.generation
	id := *p.identity
	p.mu.Unlock()

	return p.load(ctx, gen, id)
}

func (p *Provider) load(ctx context.Context, gen uint64, identity models.Identity) error {
	records, fetchErr := p.remote.GetExpenses(ctx, models.ExpenseFilter{})

	p.catMu.Lock()

	custom, err := p.prefs.LoadCustomCategories(ctx, identity.ID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", identity.ID).Msg("Failed to load custom categories")
		custom = []models.Category{}
	}

	p.mu.Lock()
	if gen != p.generation {
		p.unlockAll()
		log.Debug().Str("user_id", identity.ID).Msg("Discarding expenses fetched for a previous identity")
		return ErrStale
	}

	if fetchErr != nil {
		// Expenses are gone, so categories fall back to what the user stored.
		p.expenses = []models.Expense{}
		p.categories = categories.Effective(nil, custom)
		p.state = StateReady
		notify := p.commitLocked()
		p.unlockAll()
		notify()
		log.Error().Err(fetchErr).Str("user_id", identity.ID).Msg("Failed to fetch expenses")
		return fmt.Errorf("fetch expenses: %w", fetchErr)
	}

	now := p.now()
	expenses := make([]models.Expense, 0, len(records))
	for _, rec := range records {
		expenses = append(expenses, MapRecord(rec, now))
	}
	p.expenses = expenses
	p.categories = categories.Effective(expenses, custom)
	p.state = StateReady
	notify := p.commitLocked()
	p.unlockAll()
	notify()

	log.Info().Str("user_id", identity.ID).Int("expenses", len(expenses)).Msg("Expenses loaded")
	return nil
}

// MapRecord converts an API record to the local shape. The date is the record's
// creation day in UTC, or now's when the record has none.
func MapRecord(rec models.ExpenseRecord, now time.Time) models.Expense {
	created := rec.CreatedAt
	if created.IsZero() {
		created = now
	}
	description := rec.Description
	if rec.Notes != "" {
		description = rec.Notes
	}
	return models.Expense{
		ID:          rec.ID.Hex(),
		Title:       rec.Description,
		Amount:      rec.Amount,
		Category:    rec.Category,
		Date:        created.UTC().Format(models.DateLayout),
		Description: description,
		Done:        rec.Done,
	}
}

// activeLocked returns the current generation and identity, or ErrNotSignedIn.
func (p *Provider) activeLocked() (uint64, models.Identity, error) {
	if p.identity == nil {
		return 0, models.Identity{}, ErrNotSignedIn
	}
	return p.generation, *p.identity, nil
}

func (p *Provider) active() (uint64, models.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeLocked()
}
