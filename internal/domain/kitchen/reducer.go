package kitchen

import "strings"

// Reduce returns the state that follows s after a. It never mutates s.
// Actions that do not apply (stale generation, unmet precondition) return
// s unchanged.
func Reduce(s State, a Action) State {
	if IsStale(s, a) {
		return s
	}
	switch a := a.(type) {
	case SetIngredients:
		s.Ingredients = a.Text
	case SetEditPrompt:
		s.EditPrompt = a.Text
	case SubmitRecipe:
		return submitRecipe(s)
	case RecipeResolved:
		recipe := a.Recipe
		s.Recipe = &recipe
		s.RecipeFlow = FlowReady
	case RecipeFailed:
		s.Recipe = nil
		s.Image = ""
		s.RecipeFlow = FlowFailed
		s.ImageFlow = FlowFailed
		s.Notice = &Notice{Kind: NoticeInline, Code: CodeRecipeFailed}
	case ImageResolved:
		s.Image = a.Image
		s.ImageFlow = FlowReady
	case ImageFailed:
		// the recipe obtained before the failure is kept
		s.ImageFlow = FlowFailed
		s.Notice = &Notice{Kind: NoticeInline, Code: CodeImageFailed}
	case SubmitEdit:
		if !CanEdit(s) {
			return s
		}
		s.EditGeneration++
		s.EditFlow = FlowPending
		s.Notice = nil
	case EditResolved:
		s.EditFlow = FlowReady
		if !a.Image.IsZero() {
			s.Image = a.Image
			s.EditPrompt = ""
		}
	case EditFailed:
		s.EditFlow = FlowFailed
		s.Notice = &Notice{Kind: NoticeInline, Code: CodeEditFailed}
	case SaveCompleted:
		receipt := a.Receipt
		s.LastSave = &receipt
	case SaveFailed:
		s.Notice = &Notice{Kind: NoticeModal, Code: CodeSaveFailed}
		s.LastSave = nil
	case DismissNotice:
		s.Notice = nil
	}
	return s
}

// IsStale reports whether a request result no longer matches s: it
// belongs to a superseded generation or its flow is no longer pending.
// Actions that are not request results are never stale.
func IsStale(s State, a Action) bool {
	switch a := a.(type) {
	case RecipeResolved:
		return a.Generation != s.Generation || s.RecipeFlow != FlowPending
	case RecipeFailed:
		return a.Generation != s.Generation || s.RecipeFlow != FlowPending
	case ImageResolved:
		return a.Generation != s.Generation || s.ImageFlow != FlowPending
	case ImageFailed:
		return a.Generation != s.Generation || s.ImageFlow != FlowPending
	case EditResolved:
		return a.EditGeneration != s.EditGeneration || s.EditFlow != FlowPending
	case EditFailed:
		return a.EditGeneration != s.EditGeneration || s.EditFlow != FlowPending
	default:
		return false
	}
}

func submitRecipe(s State) State {
	if RecipeRejection(s) != nil {
		s.Notice = &Notice{Kind: NoticeValidation, Code: CodeBlankIngredients}
		return s
	}
	s.Recipe = nil
	s.Image = ""
	s.Notice = nil
	s.LastSave = nil
	s.Generation++
	s.RecipeFlow = FlowPending
	s.ImageFlow = FlowPending
	// a new submission supersedes any edit still running
	if s.EditFlow == FlowPending {
		s.EditGeneration++
	}
	s.EditFlow = FlowIdle
	return s
}

// RecipeRejection returns why SubmitRecipe would be refused in s, or nil.
func RecipeRejection(s State) error {
	if strings.TrimSpace(s.Ingredients) == "" {
		return ErrBlankIngredients
	}
	return nil
}

// EditRejection returns why SubmitEdit would be a no-op in s, or nil.
func EditRejection(s State) error {
	switch {
	case !s.HasImage():
		return ErrNoImage
	case strings.TrimSpace(s.EditPrompt) == "":
		return ErrBlankEditPrompt
	case s.Busy():
		return ErrFlowBusy
	}
	return nil
}

// CanEdit reports whether SubmitEdit would be accepted in s.
func CanEdit(s State) bool {
	return EditRejection(s) == nil
}

// RecipeStarted reports whether the transition from before to after started a
// new recipe generation.
func RecipeStarted(before, after State) bool {
	return after.Generation != before.Generation && after.RecipeFlow == FlowPending
}

// EditStarted reports whether the transition from before to after started
// a new edit.
func EditStarted(before, after State) bool {
	return after.EditGeneration != before.EditGeneration && after.EditFlow == FlowPending
}
