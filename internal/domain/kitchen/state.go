package kitchen

import (
	"fmt"
	"time"
)

// FlowStatus is the lifecycle of one asynchronous concern (recipe, image
// or edit). Using one enumeration per flow rules out contradictory flag
// combinations.
type FlowStatus int

const (
	FlowIdle FlowStatus = iota
	FlowPending
	FlowReady
	FlowFailed
)

var flowNames = [...]string{"idle", "pending", "ready", "failed"}

// String implements fmt.Stringer.
func (f FlowStatus) String() string {
	if int(f) < len(flowNames) && f >= 0 {
		return flowNames[f]
	}
	return fmt.Sprintf("FlowStatus(%d)", int(f))
}

// MarshalText encodes the status by name.
func (f FlowStatus) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a status name.
func (f *FlowStatus) UnmarshalText(text []byte) error {
	for i, name := range flowNames {
		if name == string(text) {
			*f = FlowStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown flow status %q", text)
}

// SaveMethod records which capability handled a save.
type SaveMethod string

const (
	SaveShared   SaveMethod = "shared"
	SaveDownload SaveMethod = "download"
)

// SaveReceipt describes the last completed save of the image.
type SaveReceipt struct {
	Method    SaveMethod    `json:"method"`
	Target    string        `json:"target,omitempty"` // sharer name or location
	Filename  string        `json:"filename"`
	FolderURL string        `json:"folder_url,omitempty"`
	At        time.Time     `json:"at"`
	Banner    time.Duration `json:"banner"`
}

// BannerVisible reports whether the instructional banner is still showing.
func (r *SaveReceipt) BannerVisible(now time.Time) bool {
	return r != nil && now.Before(r.At.Add(r.Banner))
}

// State is the whole page state of one session. It is a value: every
// transition returns a new copy and nothing mutates it in place.
type State struct {
	Ingredients string  `json:"ingredients"`
	EditPrompt  string  `json:"edit_prompt"`
	Recipe      *Recipe `json:"recipe,omitempty"`
	Image       DataURI `json:"image,omitempty"`

	RecipeFlow FlowStatus `json:"recipe_flow"`
	ImageFlow  FlowStatus `json:"image_flow"`
	EditFlow   FlowStatus `json:"edit_flow"`

	Notice   *Notice      `json:"notice,omitempty"`
	LastSave *SaveReceipt `json:"last_save,omitempty"`

	// Generation increments on every accepted recipe submission and
	// EditGeneration on every accepted edit. Results carrying an older
	// number are stale and ignored.
	Generation     uint64 `json:"generation"`
	EditGeneration uint64 `json:"edit_generation"`
}

// RecipeInFlight reports whether the recipe call is outstanding.
func (s State) RecipeInFlight() bool { return s.RecipeFlow == FlowPending }

// ImageInFlight reports whether the image call is outstanding.
func (s State) ImageInFlight() bool { return s.ImageFlow == FlowPending }

// EditInFlight reports whether an image edit is outstanding.
func (s State) EditInFlight() bool { return s.EditFlow == FlowPending }

// Busy reports whether any background request is outstanding.
func (s State) Busy() bool {
	return s.RecipeInFlight() || s.ImageInFlight() || s.EditInFlight()
}

// HasImage reports whether an image is present.
func (s State) HasImage() bool { return !s.Image.IsZero() }

// ErrorMessage returns the notice text in the default locale, or "".
func (s State) ErrorMessage() string {
	return s.ErrorMessageIn(DefaultLocale)
}

// ErrorMessageIn returns the notice text in the given locale, or "".
func (s State) ErrorMessageIn(locale Locale) string {
	if s.Notice == nil {
		return ""
	}
	return s.Notice.Message(locale)
}
