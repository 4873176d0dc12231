package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark-c-hall/whatmovies/internal/models"
)

var ErrNoIdentifier = errors.New("favorites: missing visitor or movie identifier")

// Store records which movies a visitor has marked as favorite. Membership is
// keyed by visitor id and TMDB movie id.
type Store interface {
	IsFavorite(ctx context.Context, visitor, movieID string) (bool, error)
	Add(ctx context.Context, visitor, movieID string) error
	Remove(ctx context.Context, visitor, movieID string) error
	List(ctx context.Context, visitor string) ([]models.Favorite, error)
}

// Toggle flips membership of movieID and returns the new state. It reads
// membership first and delegates to Add or Remove; nothing else is reconciled.
func Toggle(ctx context.Context, store Store, visitor, movieID string) (bool, error) {
	if visitor == "" || movieID == "" {
		return false, ErrNoIdentifier
	}

	fav, err := store.IsFavorite(ctx, visitor, movieID)
	if err != nil {
		return false, fmt.Errorf("error reading favorite: %w", err)
	}

	if fav {
		if err := store.Remove(ctx, visitor, movieID); err != nil {
			return true, fmt.Errorf("error removing favorite: %w", err)
		}
		return false, nil
	}

	if err := store.Add(ctx, visitor, movieID); err != nil {
		return false, fmt.Errorf("error adding favorite: %w", err)
	}
	return true, nil
}
