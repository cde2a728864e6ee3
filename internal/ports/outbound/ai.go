package outbound

import (
	"context"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
)

// KitchenAI is the generative-AI gateway. Each call is a single request
// with no retry; callers own cancellation through ctx.
type KitchenAI interface {
	// RequestRecipe suggests a recipe that uses the given ingredients.
	RequestRecipe(ctx context.Context, ingredients string) (kitchen.Recipe, error)

	// RequestFoodImage renders a photo of the dish. A zero DataURI with a
	// nil error means the provider returned no image.
	RequestFoodImage(ctx context.Context, dishTitle string) (kitchen.DataURI, error)

	// RequestImageEdit applies a free-text instruction to an image. A zero
	// DataURI with a nil error means the provider returned no image.
	RequestImageEdit(ctx context.Context, source kitchen.DataURI, instruction string) (kitchen.DataURI, error)
}
