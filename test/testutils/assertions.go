// Package testutils provides custom assertions for domain-specific testing
package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
)

// StateAssertions provides kitchen state assertions
type StateAssertions struct {
	t *testing.T
}

// NewStateAssertions creates new state assertions
func NewStateAssertions(t *testing.T) *StateAssertions {
	return &StateAssertions{t: t}
}

// Settled asserts that no request is outstanding
func (sa *StateAssertions) Settled(s kitchen.State, msgAndArgs ...interface{}) {
	sa.t.Helper()
	assert.False(sa.t, s.Busy(), msgAndArgs...)
}

// Flows asserts the status of the recipe, image and edit flows
func (sa *StateAssertions) Flows(s kitchen.State, recipe, image, edit kitchen.FlowStatus, msgAndArgs ...interface{}) {
	sa.t.Helper()
	assert.Equal(sa.t, recipe, s.RecipeFlow, msgAndArgs...)
	assert.Equal(sa.t, image, s.ImageFlow, msgAndArgs...)
	assert.Equal(sa.t, edit, s.EditFlow, msgAndArgs...)
}

// Notice asserts the current notice kind and code
func (sa *StateAssertions) Notice(s kitchen.State, kind kitchen.NoticeKind, code kitchen.NoticeCode, msgAndArgs ...interface{}) {
	sa.t.Helper()
	if assert.NotNil(sa.t, s.Notice, msgAndArgs...) {
		assert.Equal(sa.t, kind, s.Notice.Kind, msgAndArgs...)
		assert.Equal(sa.t, code, s.Notice.Code, msgAndArgs...)
	}
}

// NoNotice asserts that no notice is shown
func (sa *StateAssertions) NoNotice(s kitchen.State, msgAndArgs ...interface{}) {
	sa.t.Helper()
	assert.Nil(sa.t, s.Notice, msgAndArgs...)
}
