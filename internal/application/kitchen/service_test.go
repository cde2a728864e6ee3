package kitchen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
	apperrors "github.com/alchemorsel/chefnano/pkg/errors"
	"github.com/alchemorsel/chefnano/test/testutils"
)

const folderURL = "https://drive.example.com/folders/recipes"

type ServiceTestSuite struct {
	suite.Suite
	ai      *testutils.MockKitchenAI
	metrics *testutils.RecordingMetrics
	states  *memory.StateRepository
	factory *testutils.KitchenFactory
	check   *testutils.StateAssertions
	ctx     context.Context
}

func (s *ServiceTestSuite) SetupTest() {
	s.ai = new(testutils.MockKitchenAI)
	s.metrics = testutils.NewRecordingMetrics()
	s.states = memory.NewStateRepository(outbound.StateRepositoryConfig{TTL: time.Minute}, zap.NewNop())
	s.factory = testutils.NewKitchenFactory(42)
	s.check = testutils.NewStateAssertions(s.T())
	s.ctx = context.Background()
}

// SetupSubTest gives every s.Run case fresh mocks.
func (s *ServiceTestSuite) SetupSubTest() {
	s.ai = new(testutils.MockKitchenAI)
	s.metrics = testutils.NewRecordingMetrics()
	s.check = testutils.NewStateAssertions(s.T())
}

func (s *ServiceTestSuite) newService(cfg Config, sharers ...outbound.ImageSharer) *Service {
	if cfg.FolderURL == "" {
		cfg.FolderURL = folderURL
	}
	if cfg.BannerDuration == 0 {
		cfg.BannerDuration = 8 * time.Second
	}
	svc := NewService(s.states, s.ai, sharers, s.metrics, cfg, zap.NewNop())
	s.T().Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func (s *ServiceTestSuite) wait(svc *Service, sid string) kitchen.State {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	s.Require().NoError(svc.Wait(ctx, sid))
	state, err := svc.State(s.ctx, sid)
	s.Require().NoError(err)
	return state
}

// generated runs a full recipe flow so the session holds a recipe and image.
func (s *ServiceTestSuite) generated(svc *Service, sid string) kitchen.State {
	ingredients := s.factory.Ingredients(3)
	recipe := s.factory.Recipe()
	image := s.factory.Image()
	s.ai.On("RequestRecipe", mock.Anything, ingredients).Return(recipe, nil).Once()
	s.ai.On("RequestFoodImage", mock.Anything, recipe.Title).Return(image, nil).Once()

	_, err := svc.SubmitRecipe(s.ctx, sid, ingredients)
	s.Require().NoError(err)
	state := s.wait(svc, sid)
	s.Require().Equal(image, state.Image)
	return state
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) TestSubmitRecipe() {
	s.Run("Success_ShouldFillRecipeAndImage", func() {
		// Arrange
		svc := s.newService(Config{})
		recipe := kitchen.Recipe{Title: "Kimchi Fried Rice", Content: "## Steps"}
		image := s.factory.Image()
		s.ai.On("RequestRecipe", mock.Anything, "kimchi, rice").Return(recipe, nil).Once()
		s.ai.On("RequestFoodImage", mock.Anything, "Kimchi Fried Rice").Return(image, nil).Once()

		// Act
		pending, err := svc.SubmitRecipe(s.ctx, "s1", "kimchi, rice")
		s.Require().NoError(err)
		final := s.wait(svc, "s1")

		// Assert
		s.True(pending.RecipeInFlight())
		s.True(pending.ImageInFlight())
		s.Equal(uint64(1), pending.Generation)

		s.check.Flows(final, kitchen.FlowReady, kitchen.FlowReady, kitchen.FlowIdle)
		s.check.NoNotice(final)
		s.Equal(&recipe, final.Recipe)
		s.Equal(image, final.Image)
		s.Equal("kimchi, rice", final.Ingredients)
		s.Equal(1, s.metrics.Finished(flowRecipe, outcomeReady))
		s.Equal(1, s.metrics.Finished(flowImage, outcomeReady))
		s.ai.AssertExpectations(s.T())
	})

	s.Run("BlankIngredients_ShouldNotCallProvider", func() {
		svc := s.newService(Config{})

		state, err := svc.SubmitRecipe(s.ctx, "s2", "   \n\t")

		s.Require().NoError(err)
		s.check.Notice(state, kitchen.NoticeValidation, kitchen.CodeBlankIngredients)
		s.False(state.Busy())
		s.Equal(uint64(0), state.Generation)
		s.ai.AssertNotCalled(s.T(), "RequestRecipe", mock.Anything, mock.Anything)
	})

	s.Run("RecipeFailure_ShouldSkipImageAndNotify", func() {
		svc := s.newService(Config{})
		s.ai.On("RequestRecipe", mock.Anything, "stone").Return(kitchen.Recipe{}, errors.New("quota exceeded")).Once()

		_, err := svc.SubmitRecipe(s.ctx, "s3", "stone")
		s.Require().NoError(err)
		final := s.wait(svc, "s3")

		s.check.Flows(final, kitchen.FlowFailed, kitchen.FlowFailed, kitchen.FlowIdle)
		s.check.Notice(final, kitchen.NoticeInline, kitchen.CodeRecipeFailed)
		s.Nil(final.Recipe)
		s.False(final.HasImage())
		s.ai.AssertNotCalled(s.T(), "RequestFoodImage", mock.Anything, mock.Anything)
	})

	s.Run("ImageFailure_ShouldRetainRecipe", func() {
		svc := s.newService(Config{})
		recipe := s.factory.Recipe()
		s.ai.On("RequestRecipe", mock.Anything, "tofu").Return(recipe, nil).Once()
		s.ai.On("RequestFoodImage", mock.Anything, recipe.Title).Return(kitchen.DataURI(""), errors.New("safety block")).Once()

		_, err := svc.SubmitRecipe(s.ctx, "s4", "tofu")
		s.Require().NoError(err)
		final := s.wait(svc, "s4")

		s.check.Flows(final, kitchen.FlowReady, kitchen.FlowFailed, kitchen.FlowIdle)
		s.check.Notice(final, kitchen.NoticeInline, kitchen.CodeImageFailed)
		s.Equal(&recipe, final.Recipe)
	})

	s.Run("EmptyImage_ShouldSettleWithoutImage", func() {
		svc := s.newService(Config{})
		recipe := s.factory.Recipe()
		s.ai.On("RequestRecipe", mock.Anything, "salt").Return(recipe, nil).Once()
		s.ai.On("RequestFoodImage", mock.Anything, recipe.Title).Return(kitchen.DataURI(""), nil).Once()

		_, err := svc.SubmitRecipe(s.ctx, "s5", "salt")
		s.Require().NoError(err)
		final := s.wait(svc, "s5")

		s.check.Settled(final)
		s.check.NoNotice(final)
		s.False(final.HasImage())
		s.Equal(1, s.metrics.Finished(flowImage, outcomeEmpty))
	})

	s.Run("Resubmit_ShouldCancelAndDropSupersededFlow", func() {
		svc := s.newService(Config{})
		second := kitchen.Recipe{Title: "Rice Bowl"}
		image := s.factory.Image()
		s.ai.On("RequestRecipe", mock.Anything, "egg").
			Run(testutils.BlockUntilCancelled).
			Return(kitchen.Recipe{}, context.Canceled).Once()
		s.ai.On("RequestRecipe", mock.Anything, "rice").Return(second, nil).Once()
		s.ai.On("RequestFoodImage", mock.Anything, "Rice Bowl").Return(image, nil).Once()

		_, err := svc.SubmitRecipe(s.ctx, "s6", "egg")
		s.Require().NoError(err)
		_, err = svc.SubmitRecipe(s.ctx, "s6", "rice")
		s.Require().NoError(err)
		final := s.wait(svc, "s6")

		s.Equal(uint64(2), final.Generation)
		s.Equal(&second, final.Recipe)
		s.Equal(image, final.Image)
		s.check.NoNotice(final)
		s.Equal(1, s.metrics.Stale(flowRecipe))
	})
}

func (s *ServiceTestSuite) TestSubmitEdit() {
	s.Run("Success_ShouldReplaceImageAndClearPrompt", func() {
		svc := s.newService(Config{})
		before := s.generated(svc, "e1")
		edited := s.factory.Image()
		s.ai.On("RequestImageEdit", mock.Anything, before.Image, "add sesame").Return(edited, nil).Once()

		pending, err := svc.SubmitEdit(s.ctx, "e1", "add sesame")
		s.Require().NoError(err)
		final := s.wait(svc, "e1")

		s.True(pending.EditInFlight())
		s.Equal(edited, final.Image)
		s.Empty(final.EditPrompt)
		s.Equal(kitchen.FlowReady, final.EditFlow)
		s.Equal(before.Recipe, final.Recipe)
	})

	s.Run("WithoutImage_ShouldBeNoOp", func() {
		svc := s.newService(Config{})

		state, err := svc.SubmitEdit(s.ctx, "e2", "make it spicy")

		s.Require().NoError(err)
		s.Equal(kitchen.FlowIdle, state.EditFlow)
		s.Equal("make it spicy", state.EditPrompt)
		s.ai.AssertNotCalled(s.T(), "RequestImageEdit", mock.Anything, mock.Anything, mock.Anything)
	})

	s.Run("BlankInstruction_ShouldBeNoOp", func() {
		svc := s.newService(Config{})
		s.generated(svc, "e3")

		state, err := svc.SubmitEdit(s.ctx, "e3", "  ")

		s.Require().NoError(err)
		s.Equal(kitchen.FlowIdle, state.EditFlow)
	})

	s.Run("Failure_ShouldKeepImageAndNotify", func() {
		svc := s.newService(Config{})
		before := s.generated(svc, "e4")
		s.ai.On("RequestImageEdit", mock.Anything, before.Image, "turn blue").Return(kitchen.DataURI(""), errors.New("boom")).Once()

		_, err := svc.SubmitEdit(s.ctx, "e4", "turn blue")
		s.Require().NoError(err)
		final := s.wait(svc, "e4")

		s.Equal(before.Image, final.Image)
		s.Equal("turn blue", final.EditPrompt)
		s.Equal(kitchen.FlowFailed, final.EditFlow)
		s.check.Notice(final, kitchen.NoticeInline, kitchen.CodeEditFailed)
	})

	s.Run("NewRecipe_ShouldSupersedePendingEdit", func() {
		svc := s.newService(Config{})
		before := s.generated(svc, "e5")
		s.ai.On("RequestImageEdit", mock.Anything, before.Image, "slow edit").
			Run(testutils.BlockUntilCancelled).
			Return(kitchen.DataURI(""), context.Canceled).Once()
		recipe := s.factory.Recipe()
		image := s.factory.Image()
		s.ai.On("RequestRecipe", mock.Anything, "noodles").Return(recipe, nil).Once()
		s.ai.On("RequestFoodImage", mock.Anything, recipe.Title).Return(image, nil).Once()

		_, err := svc.SubmitEdit(s.ctx, "e5", "slow edit")
		s.Require().NoError(err)
		_, err = svc.SubmitRecipe(s.ctx, "e5", "noodles")
		s.Require().NoError(err)
		final := s.wait(svc, "e5")

		s.Equal(image, final.Image)
		s.Equal(kitchen.FlowIdle, final.EditFlow)
		s.check.NoNotice(final)
		s.Equal(1, s.metrics.Stale(flowEdit))
	})
}

func (s *ServiceTestSuite) TestSaveImage() {
	s.Run("NoSharers_ShouldFallBackToDownload", func() {
		svc := s.newService(Config{})
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }
		state := s.generated(svc, "v1")
		wantData, err := state.Image.Bytes()
		s.Require().NoError(err)

		result, err := svc.SaveImage(s.ctx, "v1")

		s.Require().NoError(err)
		s.Equal(kitchen.SaveDownload, result.Receipt.Method)
		s.Equal(kitchen.ExportName(state.Recipe)+".png", result.Receipt.Filename)
		s.Equal(folderURL, result.Receipt.FolderURL)
		s.Equal(8*time.Second, result.Receipt.Banner)
		s.Equal(wantData, result.Data)

		after, err := svc.State(s.ctx, "v1")
		s.Require().NoError(err)
		s.Require().NotNil(after.LastSave)
		s.True(after.LastSave.BannerVisible(now.Add(7 * time.Second)))
		s.False(after.LastSave.BannerVisible(now.Add(9 * time.Second)))
		s.Equal(1, s.metrics.Saves("download", ""))
	})

	s.Run("SharerChain_ShouldFallThroughFailures", func() {
		unavailable := testutils.NewMockImageSharer("offline")
		failing := testutils.NewMockImageSharer("flaky")
		working := testutils.NewMockImageSharer("s3")
		svc := s.newService(Config{}, unavailable, failing, working)
		state := s.generated(svc, "v2")
		filename := kitchen.ExportName(state.Recipe) + ".png"

		unavailable.On("CanShare", mock.Anything).Return(false)
		failing.On("CanShare", mock.Anything).Return(true)
		failing.On("Share", mock.Anything, filename, mock.Anything).Return("", errors.New("timeout"))
		working.On("CanShare", mock.Anything).Return(true)
		working.On("Share", mock.Anything, filename, mock.Anything).Return("s3://dishes/x.png", nil)

		result, err := svc.SaveImage(s.ctx, "v2")

		s.Require().NoError(err)
		s.Equal(kitchen.SaveShared, result.Receipt.Method)
		s.Equal("s3://dishes/x.png", result.Receipt.Target)
		s.Nil(result.Data)
		unavailable.AssertNotCalled(s.T(), "Share", mock.Anything, mock.Anything, mock.Anything)
		s.Equal(1, s.metrics.Saves("shared", "s3"))
	})

	s.Run("ClientFailure_ShouldWithdrawDownloadReceipt", func() {
		svc := s.newService(Config{BannerDuration: 8 * time.Second})
		s.generated(svc, "v5")
		_, err := svc.SaveImage(s.ctx, "v5")
		s.Require().NoError(err)

		state, err := svc.ReportSaveFailure(s.ctx, "v5", "download failed: 500")

		s.Require().NoError(err)
		s.Nil(state.LastSave)
		s.check.Notice(state, kitchen.NoticeModal, kitchen.CodeSaveFailed)
		s.True(state.HasImage())
	})

	s.Run("WithoutImage_ShouldRaiseModalNotice", func() {
		svc := s.newService(Config{})

		result, err := svc.SaveImage(s.ctx, "v3")

		s.Nil(result)
		s.True(apperrors.Is(err, apperrors.CodeNoImage))
		state, loadErr := svc.State(s.ctx, "v3")
		s.Require().NoError(loadErr)
		s.check.Notice(state, kitchen.NoticeModal, kitchen.CodeSaveFailed)
		s.True(state.Notice.Modal())
	})

	s.Run("UndecodableImage_ShouldRaiseModalNotice", func() {
		svc := s.newService(Config{})
		_, _, err := s.states.Update(s.ctx, "v4", func(st kitchen.State) kitchen.State {
			st.Image = kitchen.DataURI("data:image/png;base64,@@@")
			return st
		})
		s.Require().NoError(err)

		_, err = svc.SaveImage(s.ctx, "v4")

		s.ErrorIs(err, kitchen.ErrInvalidDataURI)
		state, _ := svc.State(s.ctx, "v4")
		s.check.Notice(state, kitchen.NoticeModal, kitchen.CodeSaveFailed)
	})
}

func (s *ServiceTestSuite) TestImageFile() {
	svc := s.newService(Config{})

	_, _, err := svc.ImageFile(s.ctx, "f1")
	s.True(apperrors.Is(err, apperrors.CodeNoImage))

	_, _, err = s.states.Update(s.ctx, "f1", func(st kitchen.State) kitchen.State {
		st.Image = kitchen.NewPNGDataURI([]byte("png"))
		return st
	})
	s.Require().NoError(err)

	data, name, err := svc.ImageFile(s.ctx, "f1")
	s.Require().NoError(err)
	s.Equal([]byte("png"), data)
	s.Equal("ai-recipe.png", name)
}

func (s *ServiceTestSuite) TestRequestTimeout() {
	svc := s.newService(Config{RequestTimeout: 20 * time.Millisecond})
	s.ai.On("RequestRecipe", mock.Anything, "slow").
		Run(testutils.BlockUntilCancelled).
		Return(kitchen.Recipe{}, context.DeadlineExceeded).Once()

	_, err := svc.SubmitRecipe(s.ctx, "t1", "slow")
	s.Require().NoError(err)
	final := s.wait(svc, "t1")

	s.check.Notice(final, kitchen.NoticeInline, kitchen.CodeRecipeFailed)
}

func (s *ServiceTestSuite) TestWaitAndClose() {
	svc := s.newService(Config{})
	s.ai.On("RequestRecipe", mock.Anything, "forever").
		Run(testutils.BlockUntilCancelled).
		Return(kitchen.Recipe{}, context.Canceled).Once()

	_, err := svc.SubmitRecipe(s.ctx, "w1", "forever")
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	s.ErrorIs(svc.Wait(ctx, "w1"), context.DeadlineExceeded)

	closeCtx, closeCancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer closeCancel()
	s.NoError(svc.Close(closeCtx))
	s.NoError(svc.Wait(s.ctx, "w1"))
	s.NoError(svc.Wait(s.ctx, "unknown"))
}

func (s *ServiceTestSuite) TestFlowTracing() {
	s.Run("RecipeAndEdit_ShouldEachOpenOneSpan", func() {
		tracer := &testutils.RecordingTracer{}
		svc := NewService(s.states, s.ai, nil, s.metrics, Config{FolderURL: folderURL}, zap.NewNop(), WithTracer(tracer))
		s.T().Cleanup(func() { _ = svc.Close(context.Background()) })
		before := s.generated(svc, "tr1")
		s.ai.On("RequestImageEdit", mock.Anything, before.Image, "more herbs").
			Return(kitchen.DataURI(""), errors.New("quota")).Once()

		_, err := svc.SubmitEdit(s.ctx, "tr1", "more herbs")
		s.Require().NoError(err)
		s.wait(svc, "tr1")

		spans := tracer.Spans()
		s.Require().Len(spans, 2)
		s.Equal(flowRecipe, spans[0].Flow)
		s.Equal("tr1", spans[0].SessionID)
		s.Equal(uint64(1), spans[0].Generation)
		s.True(spans[0].Ended)
		s.NoError(spans[0].Err)
		s.Equal(flowEdit, spans[1].Flow)
		s.Equal(uint64(1), spans[1].Generation)
		s.True(spans[1].Ended)
		s.EqualError(spans[1].Err, "quota")
	})

	s.Run("NilTracer_ShouldKeepDefault", func() {
		svc := NewService(s.states, s.ai, nil, s.metrics, Config{}, zap.NewNop(), WithTracer(nil))
		s.T().Cleanup(func() { _ = svc.Close(context.Background()) })
		s.IsType(noopTracer{}, svc.tracer)
	})
}
