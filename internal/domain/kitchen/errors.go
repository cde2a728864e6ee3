package kitchen

import "errors"

// Domain errors for kitchen operations

var (
	// Input validation errors
	ErrBlankIngredients = errors.New("ingredients must not be blank")
	ErrBlankEditPrompt  = errors.New("edit instruction must not be blank")

	// Image errors
	ErrNoImage        = errors.New("no image to work with")
	ErrInvalidDataURI = errors.New("invalid image data URI")

	// Flow errors
	ErrFlowBusy = errors.New("another request is already in flight")
)
