package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"spendly/internal/models"
)

const (
	KeyIdentity         = "expense_tracker_user"
	KeyCategoriesPrefix = "expense_tracker_categories_"
	KeyRates            = "currency_rates"
	KeySession          = "expense_tracker_session"
)

func CategoriesKey(identityID string) string {
	return KeyCategoriesPrefix + identityID
}

// CachedRate is the last fetched USD to INR rate. Timestamp is in Unix milliseconds.
type CachedRate struct {
	Rate      float64 `json:"rate"`
	Timestamp int64   `json:"timestamp"`
}

func (c CachedRate) FetchedAt() time.Time {
	return time.UnixMilli(c.Timestamp)
}

type SessionCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// Repository reads and writes typed preference values as JSON on top of a Store.
type Repository struct {
	store Store
}

func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Close() error {
	return r.store.Close()
}

// load decodes key into v. A missing or unreadable value reports false; unreadable
// values are logged and otherwise treated as absent.
func (r *Repository) load(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Ignoring unreadable preference value")
		return false, nil
	}
	return true, nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return r.store.Set(ctx, key, string(raw))
}

// LoadIdentity returns the cached identity, or nil when nobody is signed in.
func (r *Repository) LoadIdentity(ctx context.Context) (*models.Identity, error) {
	var id models.Identity
	ok, err := r.load(ctx, KeyIdentity, &id)
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

func (r *Repository) SaveIdentity(ctx context.Context, id models.Identity) error {
	return r.save(ctx, KeyIdentity, id)
}

func (r *Repository) ClearIdentity(ctx context.Context) error {
	return r.store.Delete(ctx, KeyIdentity)
}

// LoadCustomCategories returns the stored custom categories for identityID. An
// empty identityID has no categories.
func (r *Repository) LoadCustomCategories(ctx context.Context, identityID string) ([]models.Category, error) {
	list := []models.Category{}
	if identityID == "" {
		return list, nil
	}
	ok, err := r.load(ctx, CategoriesKey(identityID), &list)
	if err != nil {
		return nil, err
	}
	if !ok || list == nil {
		return []models.Category{}, nil
	}
	return list, nil
}

func (r *Repository) SaveCustomCategories(ctx context.Context, identityID string, list []models.Category) error {
	if identityID == "" {
		return nil
	}
	if list == nil {
		list = []models.Category{}
	}
	return r.save(ctx, CategoriesKey(identityID), list)
}

func (r *Repository) LoadRate(ctx context.Context) (CachedRate, bool, error) {
	var rate CachedRate
	ok, err := r.load(ctx, KeyRates, &rate)
	return rate, ok, err
}

func (r *Repository) SaveRate(ctx context.Context, rate CachedRate) error {
	return r.save(ctx, KeyRates, rate)
}

func (r *Repository) LoadCookies(ctx context.Context) ([]SessionCookie, error) {
	var cookies []SessionCookie
	if _, err := r.load(ctx, KeySession, &cookies); err != nil {
		return nil, err
	}
	return cookies, nil
}

func (r *Repository) SaveCookies(ctx context.Context, cookies []SessionCookie) error {
	return r.save(ctx, KeySession, cookies)
}

func (r *Repository) ClearCookies(ctx context.Context) error {
	return r.store.Delete(ctx, KeySession)
}
