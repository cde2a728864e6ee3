// Package kitchen provides the application layer for the smart kitchen page
// This implements the use cases defined in the inbound ports
package kitchen

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/ports/inbound"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
	"github.com/alchemorsel/chefnano/pkg/errors"
)

// Config holds the service settings
type Config struct {
	// FolderURL is the shared folder the user is sent to after a save.
	FolderURL string
	// BannerDuration is how long the post-save banner stays visible.
	BannerDuration time.Duration
	// RequestTimeout bounds each background flow; zero means no bound.
	RequestTimeout time.Duration
}

// Service implements the kitchen use cases
type Service struct {
	states  outbound.StateRepository
	ai      outbound.KitchenAI
	sharers []outbound.ImageSharer
	metrics outbound.KitchenMetrics
	tracer  outbound.FlowTracer
	config  Config
	logger  *zap.Logger
	now     func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc

	mu    sync.Mutex
	flows map[string]*sessionFlows
	wg    sync.WaitGroup
}

var _ inbound.KitchenService = (*Service)(nil)

// Option customizes a Service
type Option func(*Service)

// WithTracer traces every background flow with t
func WithTracer(t outbound.FlowTracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService creates a new kitchen service. Sharers are tried in order
// when saving; metrics may be nil.
func NewService(
	states outbound.StateRepository,
	ai outbound.KitchenAI,
	sharers []outbound.ImageSharer,
	metrics outbound.KitchenMetrics,
	config Config,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	baseCtx, stop := context.WithCancel(context.Background())
	s := &Service{
		states:  states,
		ai:      ai,
		sharers: sharers,
		metrics: metrics,
		tracer:  noopTracer{},
		config:  config,
		logger:  logger.Named("kitchen-service"),
		now:     time.Now,
		baseCtx: baseCtx,
		stop:    stop,
		flows:   make(map[string]*sessionFlows),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current page state of the session
func (s *Service) State(ctx context.Context, sessionID string) (kitchen.State, error) {
	state, err := s.states.Load(ctx, sessionID)
	if err != nil {
		return kitchen.State{}, errors.NewStateStoreError("load", err)
	}
	return state, nil
}

// SetIngredients replaces the ingredients text
func (s *Service) SetIngredients(ctx context.Context, sessionID, text string) (kitchen.State, error) {
	return s.dispatch(ctx, sessionID, kitchen.SetIngredients{Text: text})
}

// SetEditPrompt replaces the edit instruction text
func (s *Service) SetEditPrompt(ctx context.Context, sessionID, text string) (kitchen.State, error) {
	return s.dispatch(ctx, sessionID, kitchen.SetEditPrompt{Text: text})
}

// DismissNotice clears the current notice
func (s *Service) DismissNotice(ctx context.Context, sessionID string) (kitchen.State, error) {
	return s.dispatch(ctx, sessionID, kitchen.DismissNotice{})
}

// SubmitRecipe stores the ingredients and, when they are not blank, starts
// a new recipe generation in the background. The returned state already
// shows both flows pending.
func (s *Service) SubmitRecipe(ctx context.Context, sessionID, ingredients string) (kitchen.State, error) {
	before, after, err := s.update(ctx, sessionID,
		kitchen.SetIngredients{Text: ingredients},
		kitchen.SubmitRecipe{},
	)
	if err != nil {
		return kitchen.State{}, err
	}

	if !kitchen.RecipeStarted(before, after) {
		s.logger.Debug("Recipe submission rejected",
			zap.String("session_id", sessionID),
			zap.NamedError("reason", kitchen.RecipeRejection(after)),
		)
		return after, nil
	}

	s.logger.Info("Recipe generation started",
		zap.String("session_id", sessionID),
		zap.Uint64("generation", after.Generation),
	)
	if fl, ok := s.startFlow(sessionID, flowRecipe, after); ok {
		go s.runRecipe(fl, sessionID, after.Generation, after.Ingredients)
	}
	return after, nil
}

// SubmitEdit stores the instruction and, when an edit is possible, starts
// it in the background.
func (s *Service) SubmitEdit(ctx context.Context, sessionID, instruction string) (kitchen.State, error) {
	before, after, err := s.update(ctx, sessionID,
		kitchen.SetEditPrompt{Text: instruction},
		kitchen.SubmitEdit{},
	)
	if err != nil {
		return kitchen.State{}, err
	}

	if !kitchen.EditStarted(before, after) {
		s.logger.Debug("Image edit rejected",
			zap.String("session_id", sessionID),
			zap.NamedError("reason", kitchen.EditRejection(after)),
		)
		return after, nil
	}

	s.logger.Info("Image edit started",
		zap.String("session_id", sessionID),
		zap.Uint64("edit_generation", after.EditGeneration),
	)
	if fl, ok := s.startFlow(sessionID, flowEdit, after); ok {
		go s.runEdit(fl, sessionID, after.EditGeneration, after.Image, after.EditPrompt)
	}
	return after, nil
}

// Wait blocks until no background flow runs for the session
func (s *Service) Wait(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	f, ok := s.flows[sessionID]
	var idle chan struct{}
	if ok {
		idle = f.idle
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every running flow and waits for them to finish
func (s *Service) Close(ctx context.Context) error {
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) dispatch(ctx context.Context, sessionID string, action kitchen.Action) (kitchen.State, error) {
	_, after, err := s.update(ctx, sessionID, action)
	return after, err
}

// update applies actions in order inside one atomic repository update.
func (s *Service) update(ctx context.Context, sessionID string, actions ...kitchen.Action) (kitchen.State, kitchen.State, error) {
	before, after, err := s.states.Update(ctx, sessionID, func(state kitchen.State) kitchen.State {
		for _, action := range actions {
			state = kitchen.Reduce(state, action)
		}
		return state
	})
	if err != nil {
		s.logger.Error("State update failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return kitchen.State{}, kitchen.State{}, errors.NewStateStoreError("update", err)
	}
	return before, after, nil
}

type noopMetrics struct{}

func (noopMetrics) FlowStarted(string)           {}
func (noopMetrics) FlowFinished(string, string)  {}
func (noopMetrics) StaleResult(string)           {}
func (noopMetrics) SaveCompleted(string, string) {}

type noopTracer struct{}

func (noopTracer) StartFlow(ctx context.Context, _, _ string, _ uint64) (context.Context, func(error)) {
	return ctx, func(error) {}
}
