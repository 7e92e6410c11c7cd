package model

import "time"

// MenuItem is a sellable canteen product.
type MenuItem struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Price       float64   `json:"price" bson:"price"`
	Category    string    `json:"category" bson:"category"`
	Description string    `json:"description,omitempty" bson:"description"`
	Available   bool      `json:"available" bson:"available"`
	HasImage    bool      `json:"hasImage,omitempty" bson:"has_image"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// ItemPatch carries the fields of a partial update. Nil fields are left unchanged.
type ItemPatch struct {
	Name        *string  `json:"name,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Description *string  `json:"description,omitempty"`
	Available   *bool    `json:"available,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Category == nil && p.Description == nil && p.Available == nil
}

// Apply returns a copy of item with the patch applied.
func (p ItemPatch) Apply(item MenuItem) MenuItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Available != nil {
		item.Available = *p.Available
	}
	return item
}

// Metadata tracks the last mutation of the menu.
type Metadata struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	UpdatedBy string    `json:"updatedBy" bson:"updated_by"`
}

// SystemUser is recorded as the updater for automatic changes such as seeding.
const SystemUser = "System"
