package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"spendly/internal/categories"
	"spendly/internal/models"
)

// mutateCategories applies change to a copy of the category list, stores the custom
// subset of the result and only then makes it current. change runs with mu held.
func (p *Provider) mutateCategories(ctx context.Context, change func(list []models.Category) ([]models.Category, error)) error {
	p.catMu.Lock()

	p.mu.Lock()
	gen, identity, err := p.activeLocked()
	if err != nil {
		p.unlockAll()
		return err
	}
	next, err := change(append([]models.Category(nil), p.categories...))
	p.mu.Unlock()
	if err != nil {
		p.catMu.Unlock()
		return err
	}

	if err := p.prefs.SaveCustomCategories(ctx, identity.ID, categories.CustomOnly(next)); err != nil {
		p.catMu.Unlock()
		log.Error().Err(err).Str("user_id", identity.ID).Msg("Failed to persist categories")
		return fmt.Errorf("save categories: %w", err)
	}

	p.mu.Lock()
	if gen != p.generation {
		p.unlockAll()
		return ErrStale
	}
	p.categories = next
	notify := p.commitLocked()
	p.unlockAll()
	notify()
	return nil
}

func nameTaken(list []models.Category, name, exceptID string) bool {
	for _, c := range list {
		if c.Name == name && c.ID != exceptID {
			return true
		}
	}
	return false
}

// AddCategory creates a user category with a fresh id. Color and icon default to the
// next palette color and the tag icon.
func (p *Provider) AddCategory(ctx context.Context, in models.CategoryInput) (models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Category{}, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	var created models.Category
	err := p.mutateCategories(ctx, func(list []models.Category) ([]models.Category, error) {
		if nameTaken(list, name, "") {
			return nil, fmt.Errorf("%q: %w", name, ErrCategoryExists)
		}
		created = models.Category{
			ID:    p.newID(),
			Name:  name,
			Color: in.Color,
			Icon:  in.Icon,
		}
		if created.Color == "" {
			created.Color = categories.ColorFor(len(list))
		}
		if created.Icon == "" {
			created.Icon = categories.DefaultIcon
		}
		return append(list, created), nil
	})
	if err != nil {
		return models.Category{}, err
	}
	return created, nil
}

// UpdateCategory edits the category with id. Editing a derived category gives it a
// fresh id so the edit is stored as a custom category; the returned value carries
// the id to use from then on.
func (p *Provider) UpdateCategory(ctx context.Context, id string, upd models.CategoryUpdate) (models.Category, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return models.Category{}, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	var updated models.Category
	err := p.mutateCategories(ctx, func(list []models.Category) ([]models.Category, error) {
		i := categories.IndexOfID(list, id)
		if i < 0 {
			return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		c := list[i]
		if !categories.IsCustom(c) {
			c.ID = p.newID()
		}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if nameTaken(list, name, id) {
				return nil, fmt.Errorf("%q: %w", name, ErrCategoryExists)
			}
			c.Name = name
		}
		if upd.Color != nil {
			c.Color = *upd.Color
		}
		if upd.Icon != nil {
			c.Icon = *upd.Icon
		}
		list[i] = c
		updated = c
		return list, nil
	})
	if err != nil {
		return models.Category{}, err
	}
	return updated, nil
}

// DeleteCategory drops the category with id. Expenses that name it are untouched.
func (p *Provider) DeleteCategory(ctx context.Context, id string) error {
	return p.mutateCategories(ctx, func(list []models.Category) ([]models.Category, error) {
		i := categories.IndexOfID(list, id)
		if i < 0 {
			return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		return append(list[:i], list[i+1:]...), nil
	})
}
