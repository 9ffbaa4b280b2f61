package models

import "strings"

// MarketItem is an entry of the static marketplace catalog.
type MarketItem struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required,max=100"`
	Desc  string `json:"desc" validate:"omitempty,max=500"`
	Price string `json:"price" validate:"required"` // display string, e.g. "₱250"
	Img   string `json:"img"`
}

// Matches reports whether the lowercase query occurs in the title or
// description. An empty query matches everything.
func (m MarketItem) Matches(lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(m.Desc), lowerQuery)
}

// DefaultMarketItems is the catalog seeded on first run.
func DefaultMarketItems() []MarketItem {
	return []MarketItem{
		{ID: "m1", Title: "Used Math Textbook", Desc: "Calculus 1, good condition", Price: "₱250", Img: "https://picsum.photos/seed/book1/400/300"},
		{ID: "m2", Title: "Laptop Sleeve", Desc: "15-inch, padded", Price: "₱350", Img: "https://picsum.photos/seed/sleeve/400/300"},
		{ID: "m3", Title: "Sticker Pack", Desc: "College-themed stickers", Price: "₱80", Img: "https://picsum.photos/seed/stickers/400/300"},
		{ID: "m4", Title: "USB Flash Drive", Desc: "32GB, fast", Price: "₱150", Img: "https://picsum.photos/seed/usb/400/300"},
	}
}
