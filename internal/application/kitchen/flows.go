package kitchen

import (
	"context"

	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
)

const (
	flowRecipe = "recipe"
	flowImage  = "image"
	flowEdit   = "edit"
)

// Flow outcomes used as metric labels
const (
	outcomeReady  = "ready"
	outcomeEmpty  = "empty"
	outcomeFailed = "failed"
	outcomeStale  = "stale"
)

// sessionFlows tracks the background work of one session.
type sessionFlows struct {
	recipeGen    uint64
	recipeCancel context.CancelFunc
	editGen      uint64
	editCancel   context.CancelFunc

	running int
	// idle is closed when running drops to zero.
	idle chan struct{}
}

// flow is a running background request.
type flow struct {
	ctx  context.Context
	done func()
}

// startFlow registers the flow that state just started. A newer flow of
// the same kind cancels the older one, and a recipe flow cancels an edit
// that state superseded. It returns false when a newer flow already started.
func (s *Service) startFlow(sessionID, kind string, state kitchen.State) (flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[sessionID]
	if !ok {
		f = &sessionFlows{}
		s.flows[sessionID] = f
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	if s.config.RequestTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, s.config.RequestTimeout)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}

	switch kind {
	case flowRecipe:
		gen := state.Generation
		if gen <= f.recipeGen {
			cancel()
			s.forgetIfIdle(sessionID, f)
			return flow{}, false
		}
		if f.recipeCancel != nil {
			f.recipeCancel()
		}
		if f.editCancel != nil && f.editGen < state.EditGeneration {
			f.editCancel()
			f.editCancel = nil
		}
		f.recipeGen, f.recipeCancel = gen, cancel
	case flowEdit:
		gen := state.EditGeneration
		if gen <= f.editGen {
			cancel()
			s.forgetIfIdle(sessionID, f)
			return flow{}, false
		}
		if f.editCancel != nil {
			f.editCancel()
		}
		f.editGen, f.editCancel = gen, cancel
	}

	if f.running == 0 {
		f.idle = make(chan struct{})
	}
	f.running++
	s.wg.Add(1)

	return flow{
		ctx: ctx,
		done: func() {
			cancel()
			s.mu.Lock()
			f.running--
			if f.running == 0 {
				close(f.idle)
			}
			s.forgetIfIdle(sessionID, f)
			s.mu.Unlock()
			s.wg.Done()
		},
	}, true
}

// forgetIfIdle drops the registry entry once nothing runs. A late flow
// that finds no entry still runs, and its result is dropped as stale by
// the reducer. Callers hold s.mu.
func (s *Service) forgetIfIdle(sessionID string, f *sessionFlows) {
	if f.running == 0 && s.flows[sessionID] == f {
		delete(s.flows, sessionID)
	}
}

// runRecipe requests the recipe and, once it is in, the dish photo.
func (s *Service) runRecipe(fl flow, sessionID string, gen uint64, ingredients string) {
	defer fl.done()
	logger := s.logger.With(zap.String("session_id", sessionID), zap.Uint64("generation", gen))

	var err error
	ctx, end := s.tracer.StartFlow(fl.ctx, flowRecipe, sessionID, gen)
	defer func() { end(err) }()

	s.metrics.FlowStarted(flowRecipe)
	recipe, err := s.ai.RequestRecipe(ctx, ingredients)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Recipe generation failed", zap.Error(err))
		}
		s.finish(ctx, sessionID, flowRecipe, outcomeFailed, kitchen.RecipeFailed{Generation: gen})
		return
	}
	if !s.finish(ctx, sessionID, flowRecipe, outcomeReady, kitchen.RecipeResolved{Generation: gen, Recipe: recipe}) {
		return
	}
	logger.Info("Recipe generated", zap.String("title", recipe.Title))

	s.metrics.FlowStarted(flowImage)
	image, err := s.ai.RequestFoodImage(ctx, recipe.Title)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Dish photo generation failed", zap.Error(err))
		}
		s.finish(ctx, sessionID, flowImage, outcomeFailed, kitchen.ImageFailed{Generation: gen})
		return
	}
	outcome := outcomeReady
	if image.IsZero() {
		outcome = outcomeEmpty
		logger.Warn("Provider returned no dish photo")
	}
	s.finish(ctx, sessionID, flowImage, outcome, kitchen.ImageResolved{Generation: gen, Image: image})
}

// runEdit applies the instruction to the image.
func (s *Service) runEdit(fl flow, sessionID string, gen uint64, source kitchen.DataURI, instruction string) {
	defer fl.done()
	logger := s.logger.With(zap.String("session_id", sessionID), zap.Uint64("edit_generation", gen))

	var err error
	ctx, end := s.tracer.StartFlow(fl.ctx, flowEdit, sessionID, gen)
	defer func() { end(err) }()

	s.metrics.FlowStarted(flowEdit)
	image, err := s.ai.RequestImageEdit(ctx, source, instruction)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Image edit failed", zap.Error(err))
		}
		s.finish(ctx, sessionID, flowEdit, outcomeFailed, kitchen.EditFailed{EditGeneration: gen})
		return
	}
	outcome := outcomeReady
	if image.IsZero() {
		outcome = outcomeEmpty
	}
	s.finish(ctx, sessionID, flowEdit, outcome, kitchen.EditResolved{EditGeneration: gen, Image: image})
}

// finish merges a result into the session state and records the outcome.
// It reports whether the result was applied rather than dropped as stale.
func (s *Service) finish(ctx context.Context, sessionID, flowName, outcome string, result kitchen.Action) bool {
	stale := false
	_, _, err := s.states.Update(context.WithoutCancel(ctx), sessionID, func(state kitchen.State) kitchen.State {
		stale = kitchen.IsStale(state, result)
		return kitchen.Reduce(state, result)
	})
	if err != nil {
		s.logger.Error("Failed to store flow result",
			zap.String("session_id", sessionID),
			zap.String("flow", flowName),
			zap.Error(err),
		)
		s.metrics.FlowFinished(flowName, outcomeFailed)
		return false
	}

	if stale {
		s.logger.Debug("Dropped stale result",
			zap.String("session_id", sessionID),
			zap.String("flow", flowName),
			zap.String("action", kitchen.ActionName(result)),
		)
		s.metrics.StaleResult(flowName)
		s.metrics.FlowFinished(flowName, outcomeStale)
		return false
	}

	s.metrics.FlowFinished(flowName, outcome)
	return true
}
