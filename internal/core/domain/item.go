package domain

import "time"

type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Version   int       `json:"-"` // optimistic locking
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemFilter narrows a catalog scan. Zero-value fields are ignored;
// price bounds are inclusive.
type ItemFilter struct {
	NamePart     string
	CategoryPart string
	MinPrice     *float64
	MaxPrice     *float64
}

// ItemPatch is a partial update. Nil fields are left untouched.
type ItemPatch struct {
	Name     *string
	Category *string
	Price    *float64
	Quantity *int
}
