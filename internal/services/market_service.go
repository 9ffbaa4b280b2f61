package services

import (
	"context"
	"fmt"
	"strings"

	"campusfeed/internal/models"
	"campusfeed/internal/state"
)

// MarketService handles business logic related to the marketplace.
type MarketService struct {
	state *state.State
}

// NewMarketService creates a new MarketService.
func NewMarketService(st *state.State) *MarketService {
	return &MarketService{
		state: st,
	}
}

// ListItems returns the catalog items whose title or description contains
// query, case-insensitively.
func (s *MarketService) ListItems(query string) []models.MarketItem {
	q := strings.ToLower(strings.TrimSpace(query))

	s.state.Lock()
	defer s.state.Unlock()

	items := make([]models.MarketItem, 0, len(s.state.Market))
	for _, it := range s.state.Market {
		if it.Matches(q) {
			items = append(items, it)
		}
	}
	return items
}

func (s *MarketService) findLocked(id string) (models.MarketItem, bool) {
	for _, it := range s.state.Market {
		if it.ID == id {
			return it, true
		}
	}
	return models.MarketItem{}, false
}

// GetItem retrieves a single catalog item by its ID.
func (s *MarketService) GetItem(id string) (*models.MarketItem, error) {
	s.state.Lock()
	defer s.state.Unlock()

	it, ok := s.findLocked(id)
	if !ok {
		return nil, models.NewNotFoundError("market item", id)
	}
	return &it, nil
}

// ToggleSaved saves or unsaves an item, newest saves first, and reports
// whether the item is saved afterwards.
func (s *MarketService) ToggleSaved(ctx context.Context, id string) (bool, error) {
	s.state.Lock()
	defer s.state.Unlock()

	if _, ok := s.findLocked(id); !ok {
		return false, models.NewNotFoundError("market item", id)
	}
	if s.state.SavedScope() == state.SavedPerUser {
		if _, err := requireSession(s.state, "save items"); err != nil {
			return false, err
		}
	}

	saved := true
	ids := make([]string, 0, len(s.state.Saved)+1)
	for _, existing := range s.state.Saved {
		if existing == id {
			saved = false
			continue
		}
		ids = append(ids, existing)
	}
	if saved {
		ids = append([]string{id}, ids...)
	}

	s.state.Saved = ids
	if err := s.state.Commit(ctx, state.Saved); err != nil {
		return false, fmt.Errorf("failed to update saved items: %w", err)
	}
	return saved, nil
}

// IsSaved reports whether id is in the current saved list.
func (s *MarketService) IsSaved(id string) bool {
	s.state.Lock()
	defer s.state.Unlock()

	for _, existing := range s.state.Saved {
		if existing == id {
			return true
		}
	}
	return false
}

// ListSaved resolves the saved ids against the catalog in saved order,
// skipping ids the catalog no longer has.
func (s *MarketService) ListSaved() []models.MarketItem {
	s.state.Lock()
	defer s.state.Unlock()

	items := make([]models.MarketItem, 0, len(s.state.Saved))
	for _, id := range s.state.Saved {
		if it, ok := s.findLocked(id); ok {
			items = append(items, it)
		}
	}
	return items
}

// FakeBuy acknowledges a purchase without recording anything.
func (s *MarketService) FakeBuy(id string) (string, error) {
	it, err := s.GetItem(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Purchase of %s (%s) simulated, this is a demo", it.Title, it.Price), nil
}
