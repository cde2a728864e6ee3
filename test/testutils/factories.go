// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
)

// KitchenFactory creates kitchen test data
type KitchenFactory struct {
	faker *gofakeit.Faker
}

// NewKitchenFactory creates a factory with a fixed seed for reproducible data
func NewKitchenFactory(seed int64) *KitchenFactory {
	return &KitchenFactory{
		faker: gofakeit.New(seed),
	}
}

// NewRandomKitchenFactory creates a factory seeded from the clock
func NewRandomKitchenFactory() *KitchenFactory {
	return NewKitchenFactory(time.Now().UnixNano())
}

// Ingredients returns a comma separated ingredient list
func (f *KitchenFactory) Ingredients(n int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		switch i % 3 {
		case 0:
			items = append(items, f.faker.Vegetable())
		case 1:
			items = append(items, f.faker.Fruit())
		default:
			items = append(items, f.faker.Noun())
		}
	}
	return strings.Join(items, ", ")
}

// Recipe returns a recipe with a dish title and markdown content
func (f *KitchenFactory) Recipe() kitchen.Recipe {
	title := f.faker.Dinner()
	steps := make([]string, 0, 3)
	for i := 1; i <= 3; i++ {
		steps = append(steps, fmt.Sprintf("%d. %s", i, f.faker.Sentence(8)))
	}
	return kitchen.Recipe{
		Title:   title,
		Content: fmt.Sprintf("## %s\n\n%s\n", title, strings.Join(steps, "\n")),
	}
}

// Image returns a data URI with random payload bytes
func (f *KitchenFactory) Image() kitchen.DataURI {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(f.faker.Uint8())
	}
	return kitchen.NewPNGDataURI(append([]byte("\x89PNG\r\n\x1a\n"), data...))
}

// StateWithImage returns a settled state holding a recipe and its image
func (f *KitchenFactory) StateWithImage() kitchen.State {
	s := kitchen.Reduce(kitchen.State{}, kitchen.SetIngredients{Text: f.Ingredients(3)})
	s = kitchen.Reduce(s, kitchen.SubmitRecipe{})
	s = kitchen.Reduce(s, kitchen.RecipeResolved{Generation: s.Generation, Recipe: f.Recipe()})
	return kitchen.Reduce(s, kitchen.ImageResolved{Generation: s.Generation, Image: f.Image()})
}
