package menu

import "tabletap/internal/domain"

// FallbackCategories is a small static dataset served when the backend
// menu fetch fails and fallback mode is enabled, so the table can still
// browse and order the staples.
func FallbackCategories() []domain.Category {
	return []domain.Category{
		{
			ID:   "starters",
			Name: "Starters",
			Items: []domain.MenuItem{
				{
					ID:           "fallback-garlic-bread",
					Name:         "Garlic Bread",
					Description:  "Toasted baguette with garlic butter",
					Price:        120,
					IsVegetarian: true,
					IsAvailable:  true,
				},
				{
					ID:          "fallback-chicken-wings",
					Name:        "Chicken Wings",
					Description: "Six wings with house sauce",
					Price:       240,
					IsSpicy:     true,
					IsAvailable: true,
					CustomizationGroups: []domain.OptionGroup{
						{
							ID:           "wing-sauce",
							Name:         "Sauce",
							Mode:         domain.SingleChoice,
							MinSelection: 1,
							MaxSelection: 1,
							Options: []domain.Option{
								{ID: "bbq", Name: "BBQ"},
								{ID: "buffalo", Name: "Buffalo"},
								{ID: "honey-garlic", Name: "Honey Garlic", PriceModifier: 20},
							},
						},
					},
				},
			},
		},
		{
			ID:   "mains",
			Name: "Mains",
			Items: []domain.MenuItem{
				{
					ID:           "fallback-margherita",
					Name:         "Margherita Pizza",
					Description:  "Tomato, mozzarella, basil",
					Price:        350,
					IsVegetarian: true,
					IsAvailable:  true,
					CustomizationGroups: []domain.OptionGroup{
						{
							ID:           "pizza-toppings",
							Name:         "Extra Toppings",
							Mode:         domain.MultiChoice,
							MinSelection: 0,
							MaxSelection: 3,
							Options: []domain.Option{
								{ID: "olives", Name: "Olives", PriceModifier: 30},
								{ID: "mushrooms", Name: "Mushrooms", PriceModifier: 40},
								{ID: "extra-cheese", Name: "Extra Cheese", PriceModifier: 50},
							},
						},
					},
				},
			},
		},
		{
			ID:   "drinks",
			Name: "Drinks",
			Items: []domain.MenuItem{
				{
					ID:           "fallback-lemonade",
					Name:         "Fresh Lemonade",
					Description:  "Served chilled",
					Price:        90,
					IsVegetarian: true,
					IsAvailable:  true,
				},
			},
		},
	}
}
