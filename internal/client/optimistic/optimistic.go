// Package optimistic applies a local change before the server confirms it and
// reverts it when the request fails.
package optimistic

import (
	"context"
	"sync"

	"ai-textassist-be/internal/dto"

	"github.com/google/uuid"
)

// Apply runs apply, then request. If request fails, inverse runs and the error is returned.
func Apply(ctx context.Context, apply, inverse func(), request func(ctx context.Context) error) error {
	apply()
	if err := request(ctx); err != nil {
		inverse()
		return err
	}
	return nil
}

type HistoryBackend interface {
	SetFavorite(ctx context.Context, id uuid.UUID, isFavorite bool) error
	DeleteHistory(ctx context.Context, id uuid.UUID) error
}

// History is a locally displayed page of history items.
type History struct {
	backend HistoryBackend

	mu    sync.Mutex
	items []dto.HistoryItem
}

func NewHistory(backend HistoryBackend, items []dto.HistoryItem) *History {
	return &History{backend: backend, items: append([]dto.HistoryItem(nil), items...)}
}

func (h *History) Items() []dto.HistoryItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]dto.HistoryItem(nil), h.items...)
}

// ToggleFavorite flips the favorite flag immediately and reverts it on failure.
func (h *History) ToggleFavorite(ctx context.Context, id uuid.UUID) error {
	var target bool
	flip := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if i := h.indexOf(id); i >= 0 {
			h.items[i].IsFavorite = !h.items[i].IsFavorite
			target = h.items[i].IsFavorite
		}
	}
	return Apply(ctx, flip, flip, func(ctx context.Context) error {
		return h.backend.SetFavorite(ctx, id, target)
	})
}

// Delete removes the item immediately and puts it back in place on failure.
func (h *History) Delete(ctx context.Context, id uuid.UUID) error {
	var (
		removed dto.HistoryItem
		at      = -1
	)
	remove := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if at = h.indexOf(id); at >= 0 {
			removed = h.items[at]
			h.items = append(h.items[:at], h.items[at+1:]...)
		}
	}
	restore := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if at < 0 {
			return
		}
		if at > len(h.items) {
			at = len(h.items)
		}
		h.items = append(h.items, dto.HistoryItem{})
		copy(h.items[at+1:], h.items[at:])
		h.items[at] = removed
	}
	return Apply(ctx, remove, restore, func(ctx context.Context) error {
		return h.backend.DeleteHistory(ctx, id)
	})
}

func (h *History) indexOf(id uuid.UUID) int {
	for i := range h.items {
		if h.items[i].Id == id {
			return i
		}
	}
	return -1
}
