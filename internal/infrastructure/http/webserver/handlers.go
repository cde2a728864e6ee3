package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	apperrors "github.com/alchemorsel/chefnano/pkg/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type recipeForm struct {
	Ingredients string `validate:"max=2000"`
}

type editForm struct {
	EditPrompt string `validate:"max=1000"`
}

type saveFailureForm struct {
	Reason string `validate:"max=200"`
}

// pageData wraps the kitchen view with request scoped values.
type pageData struct {
	kitchenView
	CSRFToken string
}

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(r.Context())
	state, err := s.kitchen.State(r.Context(), sessionID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.renderTemplate(w, "index", http.StatusOK, s.page(sessionID, state, nil))
}

// handleKitchen renders the partial that HTMX polls while a request runs.
func (s *WebServer) handleKitchen(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(r.Context())
	state, err := s.kitchen.State(r.Context(), sessionID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.renderTemplate(w, "kitchen", http.StatusOK, s.page(sessionID, state, nil))
}

func (s *WebServer) handleSubmitRecipe(w http.ResponseWriter, r *http.Request) {
	form := recipeForm{Ingredients: r.PostFormValue("ingredients")}
	if err := s.validateForm(form); err != nil {
		s.handleError(w, r, err)
		return
	}

	state, err := s.kitchen.SubmitRecipe(r.Context(), SessionID(r.Context()), form.Ingredients)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, r, state, nil)
}

func (s *WebServer) handleSubmitEdit(w http.ResponseWriter, r *http.Request) {
	form := editForm{EditPrompt: r.PostFormValue("edit_prompt")}
	if err := s.validateForm(form); err != nil {
		s.handleError(w, r, err)
		return
	}

	state, err := s.kitchen.SubmitEdit(r.Context(), SessionID(r.Context()), form.EditPrompt)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, r, state, nil)
}

func (s *WebServer) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	state, err := s.kitchen.DismissNotice(r.Context(), SessionID(r.Context()))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, r, state, nil)
}

// handleSave runs the save flow. The server picks the capability; for a
// download the partial tells the page script to fetch the file, offer it
// to the native share sheet or a download anchor, and open the folder.
func (s *WebServer) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := SessionID(ctx)

	result, err := s.kitchen.SaveImage(ctx, sessionID)
	if err != nil {
		// the modal notice is already in the state; store failures are not
		if apperrors.Is(err, apperrors.CodeStateStoreError) {
			s.handleError(w, r, err)
			return
		}
		state, loadErr := s.kitchen.State(ctx, sessionID)
		if loadErr != nil {
			s.handleError(w, r, loadErr)
			return
		}
		s.respond(w, r, state, nil)
		return
	}

	if !isHTMX(r) && result.Receipt.Method == kitchen.SaveDownload {
		writeImage(w, result.Data, result.Receipt.Filename)
		return
	}

	state, err := s.kitchen.State(ctx, sessionID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, r, state, &saveView{
		Method:      string(result.Receipt.Method),
		Filename:    result.Receipt.Filename,
		DownloadURL:   "/image/download",
		FolderURL:     result.Receipt.FolderURL,
		FailedURL:     "/image/save/failed",
		FailedMessage: kitchen.Notice{Kind: kitchen.NoticeModal, Code: kitchen.CodeSaveFailed}.Message(s.locale),
	})
}

// handleSaveFailed is called by the page when the browser could not
// fetch, share or download the file it was handed.
func (s *WebServer) handleSaveFailed(w http.ResponseWriter, r *http.Request) {
	form := saveFailureForm{Reason: r.PostFormValue("reason")}
	if err := s.validateForm(form); err != nil {
		s.handleError(w, r, err)
		return
	}

	state, err := s.kitchen.ReportSaveFailure(r.Context(), SessionID(r.Context()), form.Reason)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, r, state, nil)
}

func (s *WebServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.kitchen.ImageFile(r.Context(), SessionID(r.Context()))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeImage(w, data, filename)
}

type stateResponse struct {
	State   kitchen.State `json:"state"`
	Busy    bool          `json:"busy"`
	Message string        `json:"message,omitempty"`
}

func (s *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.kitchen.State(r.Context(), SessionID(r.Context()))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stateResponse{
		State:   state,
		Busy:    state.Busy(),
		Message: state.ErrorMessageIn(s.locale),
	}); err != nil {
		s.logger.Warn("Failed to encode state", zap.Error(err))
	}
}

// respond renders the partial for HTMX and redirects plain form posts
// back to the page.
func (s *WebServer) respond(w http.ResponseWriter, r *http.Request, state kitchen.State, save *saveView) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, "kitchen", http.StatusOK, s.page(SessionID(r.Context()), state, save))
}

func (s *WebServer) page(sessionID string, state kitchen.State, save *saveView) pageData {
	view := s.newKitchenView(state, s.now())
	view.Save = save
	return pageData{
		kitchenView: view,
		CSRFToken:   s.sessions.CSRFToken(sessionID),
	}
}

func (s *WebServer) validateForm(form interface{}) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewBadRequestError(err.Error())
	}

	details := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apperrors.ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()),
		})
	}
	return apperrors.NewValidationErrors(details)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// writeImage sends PNG bytes as an attachment. The UTF-8 file name goes
// in filename*; filename carries an ASCII fallback for old clients.
func writeImage(w http.ResponseWriter, data []byte, filename string) {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		fallback, url.PathEscape(filename)))
	_, _ = w.Write(data)
}
