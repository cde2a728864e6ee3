package kitchen

import (
	"context"

	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/ports/inbound"
	"github.com/alchemorsel/chefnano/pkg/errors"
)

const pngExt = ".png"

// SaveImage saves the current image. Configured sharers are tried in
// order and a failing one falls through to the next; when none takes the
// file the result carries the bytes for a plain download. Any failure
// raises the modal save notice.
func (s *Service) SaveImage(ctx context.Context, sessionID string) (*inbound.SaveResult, error) {
	state, err := s.states.Load(ctx, sessionID)
	if err != nil {
		return nil, errors.NewStateStoreError("load", err)
	}

	data, filename, err := imageFile(state)
	if err != nil {
		s.logger.Warn("Image save failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if _, dispatchErr := s.dispatch(ctx, sessionID, kitchen.SaveFailed{}); dispatchErr != nil {
			return nil, dispatchErr
		}
		return nil, err
	}

	receipt := kitchen.SaveReceipt{
		Method:    kitchen.SaveDownload,
		Filename:  filename,
		FolderURL: s.config.FolderURL,
		At:        s.now(),
		Banner:    s.config.BannerDuration,
	}
	sharerName := ""

	for _, sharer := range s.sharers {
		if !sharer.CanShare(ctx) {
			continue
		}
		location, err := sharer.Share(ctx, filename, data)
		if err != nil {
			s.logger.Warn("Sharer failed, trying next",
				zap.String("session_id", sessionID),
				zap.String("sharer", sharer.Name()),
				zap.Error(err),
			)
			continue
		}
		receipt.Method = kitchen.SaveShared
		receipt.Target = location
		sharerName = sharer.Name()
		break
	}

	if _, err := s.dispatch(ctx, sessionID, kitchen.SaveCompleted{Receipt: receipt}); err != nil {
		return nil, err
	}
	s.metrics.SaveCompleted(string(receipt.Method), sharerName)

	s.logger.Info("Image saved",
		zap.String("session_id", sessionID),
		zap.String("method", string(receipt.Method)),
		zap.String("filename", filename),
		zap.String("target", receipt.Target),
	)

	result := &inbound.SaveResult{Receipt: receipt}
	if receipt.Method == kitchen.SaveDownload {
		result.Data = data
	}
	return result, nil
}

// ReportSaveFailure records a save that failed after the server handed
// the file over, e.g. a browser download or share that did not complete.
// It raises the modal save notice and withdraws the save banner.
func (s *Service) ReportSaveFailure(ctx context.Context, sessionID, reason string) (kitchen.State, error) {
	s.logger.Warn("Image save failed in client",
		zap.String("session_id", sessionID),
		zap.String("reason", reason),
	)
	return s.dispatch(ctx, sessionID, kitchen.SaveFailed{})
}

// ImageFile returns the current image and its download file name
func (s *Service) ImageFile(ctx context.Context, sessionID string) ([]byte, string, error) {
	state, err := s.states.Load(ctx, sessionID)
	if err != nil {
		return nil, "", errors.NewStateStoreError("load", err)
	}
	return imageFile(state)
}

func imageFile(state kitchen.State) ([]byte, string, error) {
	if !state.HasImage() {
		return nil, "", errors.NewNoImageError().WithCause(kitchen.ErrNoImage)
	}
	data, err := state.Image.Bytes()
	if err != nil {
		return nil, "", errors.NewValidationError("image is not a valid data URI").WithCause(err)
	}
	return data, kitchen.ExportName(state.Recipe) + pngExt, nil
}
