package kitchen

// Action is an input to Reduce. Actions are plain values; the ones that
// report a background result carry the generation they were started in.
type Action interface {
	actionName() string
}

// ActionName returns a stable name for logging and metrics.
func ActionName(a Action) string {
	return a.actionName()
}

type (
	// SetIngredients replaces the ingredient input text.
	SetIngredients struct{ Text string }
	// SetEditPrompt replaces the edit instruction input text.
	SetEditPrompt struct{ Text string }
	// SubmitRecipe asks for a new recipe from the current ingredients.
	SubmitRecipe struct{}
	// RecipeResolved delivers a recipe for a generation.
	RecipeResolved struct {
		Generation uint64
		Recipe     Recipe
	}
	// RecipeFailed reports a failed recipe call.
	RecipeFailed struct{ Generation uint64 }
	// ImageResolved delivers the dish photo; an empty Image means the
	// provider returned no inline payload.
	ImageResolved struct {
		Generation uint64
		Image      DataURI
	}
	// ImageFailed reports a failed image call.
	ImageFailed struct{ Generation uint64 }
	// SubmitEdit asks for the current image to be edited.
	SubmitEdit struct{}
	// EditResolved delivers an edited image; empty means no payload.
	EditResolved struct {
		EditGeneration uint64
		Image          DataURI
	}
	// EditFailed reports a failed edit call.
	EditFailed struct{ EditGeneration uint64 }
	// SaveCompleted records a finished save.
	SaveCompleted struct{ Receipt SaveReceipt }
	// SaveFailed reports a failed save.
	SaveFailed struct{}
	// DismissNotice clears the current notice.
	DismissNotice struct{}
)

func (SetIngredients) actionName() string { return "set_ingredients" }
func (SetEditPrompt) actionName() string  { return "set_edit_prompt" }
func (SubmitRecipe) actionName() string   { return "submit_recipe" }
func (RecipeResolved) actionName() string { return "recipe_resolved" }
func (RecipeFailed) actionName() string   { return "recipe_failed" }
func (ImageResolved) actionName() string  { return "image_resolved" }
func (ImageFailed) actionName() string    { return "image_failed" }
func (SubmitEdit) actionName() string     { return "submit_edit" }
func (EditResolved) actionName() string   { return "edit_resolved" }
func (EditFailed) actionName() string     { return "edit_failed" }
func (SaveCompleted) actionName() string  { return "save_completed" }
func (SaveFailed) actionName() string     { return "save_failed" }
func (DismissNotice) actionName() string  { return "dismiss_notice" }
