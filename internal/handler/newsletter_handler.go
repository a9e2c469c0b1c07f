package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"newsletteradmin/internal/models"
	"newsletteradmin/internal/service"
)

// Editor is the newsletter editing workflow
type Editor interface {
	Initialize(ctx context.Context, ec service.EditContext) (*service.EditPage, error)
	LoadForEdit(ctx context.Context, ec service.EditContext, id int) (*service.EditPage, error)
	Save(ctx context.Context, ec service.EditContext, id int, in service.SaveInput) (*service.SaveOutcome, error)
	Details(ctx context.Context, id int) (*service.NewsletterDetails, error)
	Messages(ctx context.Context, session string) ([]*models.Message, error)
}

// NewsletterHandler handles HTTP requests for the newsletter editor
type NewsletterHandler struct {
	editor Editor
}

// NewNewsletterHandler creates a new newsletter handler
func NewNewsletterHandler(editor Editor) *NewsletterHandler {
	return &NewsletterHandler{editor: editor}
}

// SaveResponse is returned by create and update
type SaveResponse struct {
	Relocate   bool               `json:"relocate"`
	Location   string             `json:"location,omitempty"`
	Saved      bool               `json:"saved"`
	Sync       string             `json:"sync"`
	Newsletter *models.Newsletter `json:"newsletter"`
	Messages   []*models.Message  `json:"messages"`
}

// New handles GET /newsletters/new
func (h *NewsletterHandler) New(w http.ResponseWriter, r *http.Request) {
	ec, ok := editContext(w, r)
	if !ok {
		return
	}

	page, err := h.editor.Initialize(r.Context(), ec)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	WriteOK(w, page)
}

// Edit handles GET /newsletters/{id}/edit. Scheduled newsletters are
// redirected to their details.
func (h *NewsletterHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := newsletterID(w, r)
	if !ok {
		return
	}
	ec, ok := editContext(w, r)
	if !ok {
		return
	}

	page, err := h.editor.LoadForEdit(r.Context(), ec, id)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	if page.Redirect != "" {
		http.Redirect(w, r, page.Redirect, http.StatusSeeOther)
		return
	}

	WriteOK(w, page)
}

// Create handles POST /newsletters
func (h *NewsletterHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, 0)
}

// Update handles PUT /newsletters/{id}
func (h *NewsletterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := newsletterID(w, r)
	if !ok {
		return
	}
	h.save(w, r, id)
}

func (h *NewsletterHandler) save(w http.ResponseWriter, r *http.Request, id int) {
	var in service.SaveInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	ec, ok := editContext(w, r)
	if !ok {
		return
	}

	outcome, err := h.editor.Save(r.Context(), ec, id, in)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	resp := SaveResponse{
		Relocate:   outcome.Relocate,
		Location:   outcome.Location,
		Saved:      outcome.Saved,
		Sync:       outcome.Sync,
		Newsletter: outcome.Newsletter,
		Messages:   []*models.Message{},
	}

	// When the editor stays open its message renders now; otherwise it waits
	// in the session for the page being relocated to.
	if !outcome.Relocate && outcome.Message != nil {
		resp.Messages = []*models.Message{outcome.Message}
	}

	if id == 0 && outcome.Saved {
		WriteCreated(w, resp)
		return
	}
	WriteOK(w, resp)
}

// Details handles GET /newsletters/{id}
func (h *NewsletterHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, ok := newsletterID(w, r)
	if !ok {
		return
	}

	details, err := h.editor.Details(r.Context(), id)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	WriteOK(w, details)
}

// Messages handles GET /messages, returning and clearing the session's queue
func (h *NewsletterHandler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.editor.Messages(r.Context(), sessionID(w, r))
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	WriteOK(w, map[string]interface{}{"messages": msgs})
}

func newsletterID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid newsletter ID")
		return 0, false
	}
	return id, true
}
