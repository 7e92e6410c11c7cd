package menu

import "github.com/erazemk/menza/internal/model"

// defaultItems is the canteen menu inserted into an empty store.
var defaultItems = []model.MenuItem{
	{Name: "Veg Puff", Price: 25, Category: "bakery", Available: true},
	{Name: "Egg Puff", Price: 30, Category: "bakery", Available: true},
	{Name: "Chicken Puff", Price: 35, Category: "bakery", Available: true},
	{Name: "Aloo Samosa", Price: 10, Category: "bakery", Available: true},
	{Name: "Sweet Corn Samosa", Price: 15, Category: "bakery", Available: true},
	{Name: "Cup Cakes", Price: 20, Category: "bakery", Available: true},
	{Name: "Cream Bun", Price: 20, Category: "bakery", Available: true},
	{Name: "Roll Cake", Price: 15, Category: "bakery", Available: true},
	{Name: "Aloo Bonda", Price: 10, Category: "bakery", Available: true},
	{Name: "Dil Pasand", Price: 20, Category: "bakery", Available: true},
	{Name: "Mango Bar", Price: 10, Category: "ice-cream", Available: true},
	{Name: "Orange Bar", Price: 20, Category: "ice-cream", Available: true},
	{Name: "Choco Bar", Price: 25, Category: "ice-cream", Available: true},
	{Name: "Vanilla Cone", Price: 35, Category: "ice-cream", Available: true},
	{Name: "Chocolate Cone", Price: 35, Category: "ice-cream", Available: true},
	{Name: "Butterscotch Cone", Price: 25, Category: "ice-cream", Available: true},
	{Name: "Black Current Cone", Price: 25, Category: "ice-cream", Available: true},
	{Name: "Chocolate Cup", Price: 45, Category: "ice-cream", Available: true},
	{Name: "Butterscotch Cup", Price: 45, Category: "ice-cream", Available: true},
	{Name: "Veg Fried Rice", Price: 60, Category: "fast-foods", Available: true},
	{Name: "Egg Fried Rice", Price: 80, Category: "fast-foods", Available: true},
	{Name: "Chicken Fried Rice", Price: 100, Category: "fast-foods", Available: true},
	{Name: "Veg Noodles", Price: 60, Category: "fast-foods", Available: true},
	{Name: "Egg Noodles", Price: 80, Category: "fast-foods", Available: true},
	{Name: "Chicken Noodles", Price: 100, Category: "fast-foods", Available: true},
	{Name: "Mountain Dew", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "Sprite", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "Thumbs Up", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "Mazaa", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "7 Up", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "Mirinda", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "Pulpy Orange", Price: 30, Category: "soft-drinks", Available: true},
	{Name: "Fanta", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "Pepsi", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "Limca", Price: 20, Category: "soft-drinks", Available: true},
	{Name: "Badam Milk", Price: 30, Category: "soft-drinks", Available: true},
	{Name: "Red Bull", Price: 120, Category: "soft-drinks", Available: true},
	{Name: "Filter Coffee", Price: 30, Category: "beverages", Description: "Traditional South Indian filter coffee", Available: true},
	{Name: "Masala Dosa", Price: 90, Category: "breakfast", Description: "Crispy dosa with spiced potato filling and chutneys", Available: true},
}

// DefaultItems returns a copy of the default menu without ids or timestamps.
func DefaultItems() []model.MenuItem {
	return append([]model.MenuItem(nil), defaultItems...)
}
