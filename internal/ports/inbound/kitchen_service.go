// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
)

// KitchenService defines the use cases of the smart kitchen page.
// This is the primary port that HTTP handlers and the CLI use.
type KitchenService interface {
	// Queries
	State(ctx context.Context, sessionID string) (kitchen.State, error)

	// Input edits
	SetIngredients(ctx context.Context, sessionID, text string) (kitchen.State, error)
	SetEditPrompt(ctx context.Context, sessionID, text string) (kitchen.State, error)
	DismissNotice(ctx context.Context, sessionID string) (kitchen.State, error)

	// Commands that start background requests
	SubmitRecipe(ctx context.Context, sessionID, ingredients string) (kitchen.State, error)
	SubmitEdit(ctx context.Context, sessionID, instruction string) (kitchen.State, error)

	// SaveImage runs the save flow and returns the receipt together with
	// the bytes to download when no sharer took the file.
	SaveImage(ctx context.Context, sessionID string) (*SaveResult, error)

	// ReportSaveFailure raises the save notice for a hand-over that
	// failed on the client side.
	ReportSaveFailure(ctx context.Context, sessionID, reason string) (kitchen.State, error)

	// ImageFile returns the current image bytes and download file name.
	ImageFile(ctx context.Context, sessionID string) ([]byte, string, error)

	// Wait blocks until no background request runs for the session.
	Wait(ctx context.Context, sessionID string) error
}

// SaveResult is the outcome of a save.
type SaveResult struct {
	Receipt kitchen.SaveReceipt
	Data    []byte
}
