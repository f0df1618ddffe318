package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idcard/internal/wizard/engine"
	"idcard/internal/wizard/files"
	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
	dErrors "idcard/pkg/domain-errors"
	"idcard/pkg/platform/httputil"
	"idcard/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the wizard session operations exposed over HTTP.
type Service interface {
	Start(ctx context.Context, role models.Role, previousSessionID string) (engine.View, error)
	View(ctx context.Context, sessionID string) (engine.View, error)
	End(ctx context.Context, sessionID string) error
	SetRole(ctx context.Context, sessionID string, role models.Role) (engine.View, error)
	RequestOTP(ctx context.Context, sessionID, identifier string) (engine.View, error)
	ConfirmOTP(ctx context.Context, sessionID, code string) (engine.View, error)
	ChangeIdentifier(ctx context.Context, sessionID string) (engine.View, error)
	ApplyFields(ctx context.Context, sessionID string, changes []engine.FieldChange) (engine.View, error)
	Attach(ctx context.Context, sessionID string, slot models.Slot, c files.Candidate) (engine.View, error)
	Remove(ctx context.Context, sessionID string, slot models.Slot) (engine.View, error)
	Next(ctx context.Context, sessionID string) (engine.View, error)
	Back(ctx context.Context, sessionID string) (engine.View, error)
	Submit(ctx context.Context, sessionID string) (engine.View, error)
}

const defaultMaxUploadBytes = 12 << 20

// Handler serves the wizard API.
type Handler struct {
	wizard         Service
	logger         *slog.Logger
	maxUploadBytes int64
}

type Option func(*Handler)

// WithMaxUploadBytes caps the multipart body of an upload request. The
// per-slot limits of the file policy are enforced by the service.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// New creates a wizard Handler.
func New(wizard Service, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{wizard: wizard, logger: logger, maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the wizard routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/catalogs/{role}", h.handleCatalogs)
	r.Post("/wizard/sessions", h.handleStart)
	r.Route("/wizard/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.handleView)
		r.Delete("/", h.handleEnd)
		r.Put("/role", h.handleSetRole)
		r.Post("/otp", h.handleRequestOTP)
		r.Post("/otp/confirm", h.handleConfirmOTP)
		r.Post("/otp/reset", h.handleChangeIdentifier)
		r.Patch("/draft", h.handleApplyFields)
		r.Put("/files/{slot}", h.handleAttach)
		r.Delete("/files/{slot}", h.handleRemove)
		r.Post("/next", h.handleNext)
		r.Post("/back", h.handleBack)
		r.Post("/submit", h.handleSubmit)
	})
}

// errorResponse carries the wizard state next to the error so the client can
// render the notice the failure raised.
type errorResponse struct {
	httputil.ErrorResponse
	State *engine.View `json:"state,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, view engine.View, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"operation", op,
		"code", code,
		"error", err.Error(),
	}
	if view.SessionID != "" {
		attrs = append(attrs, "session_id", view.SessionID)
	}
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "wizard operation failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "wizard operation rejected", attrs...)
	}

	resp := errorResponse{ErrorResponse: httputil.ErrorResponse{Error: string(code)}}
	if de, ok := dErrors.As(err); ok && code != dErrors.CodeInternal {
		resp.ErrorDescription = de.Message
	}
	if view.SessionID != "" {
		resp.State = &view
	}
	httputil.WriteJSON(w, httputil.StatusFor(code), resp)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, view engine.View, err error) {
	if err != nil {
		h.writeError(w, r, op, view, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCatalogs(w http.ResponseWriter, r *http.Request) {
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		h.writeError(w, r, "catalogs", engine.View{}, dErrors.Wrap(err, dErrors.CodeNotFound, "unknown role"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCatalogResponse(role, form.For(role)))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, "start", engine.View{}, err)
		return
	}
	role, err := req.Role()
	if err != nil {
		h.writeError(w, r, "start", engine.View{}, err)
		return
	}
	view, err := h.wizard.Start(r.Context(), role, req.PreviousSessionID)
	if err != nil {
		h.writeError(w, r, "start", view, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.View(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "view", view, err)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.wizard.End(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "end", engine.View{}, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, "set_role", engine.View{}, err)
		return
	}
	role, err := req.Role()
	if err != nil {
		h.writeError(w, r, "set_role", engine.View{}, err)
		return
	}
	view, err := h.wizard.SetRole(r.Context(), chi.URLParam(r, "id"), role)
	h.respond(w, r, "set_role", view, err)
}

func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, "request_otp", engine.View{}, err)
		return
	}
	view, err := h.wizard.RequestOTP(r.Context(), chi.URLParam(r, "id"), req.Identifier)
	h.respond(w, r, "request_otp", view, err)
}

func (h *Handler) handleConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, "confirm_otp", engine.View{}, err)
		return
	}
	view, err := h.wizard.ConfirmOTP(r.Context(), chi.URLParam(r, "id"), req.OTP)
	h.respond(w, r, "confirm_otp", view, err)
}

func (h *Handler) handleChangeIdentifier(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.ChangeIdentifier(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "change_identifier", view, err)
}

func (h *Handler) handleApplyFields(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, "apply_fields", engine.View{}, err)
		return
	}
	view, err := h.wizard.ApplyFields(r.Context(), chi.URLParam(r, "id"), req.FieldChanges())
	h.respond(w, r, "apply_fields", view, err)
}

func (h *Handler) handleAttach(w http.ResponseWriter, r *http.Request) {
	slot, ok := models.ParseSlot(chi.URLParam(r, "slot"))
	if !ok {
		h.writeError(w, r, "attach", engine.View{}, dErrors.New(dErrors.CodeNotFound, "unknown upload slot"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = dErrors.Wrap(err, dErrors.CodeFileRejected, "upload exceeds the request size limit")
		} else {
			err = dErrors.Wrap(err, dErrors.CodeBadRequest, "multipart field \"file\" is required")
		}
		h.writeError(w, r, "attach", engine.View{}, err)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	view, err := h.wizard.Attach(r.Context(), chi.URLParam(r, "id"), slot, files.Candidate{
		Name:         header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Body:         file,
	})
	h.respond(w, r, "attach", view, err)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	slot, ok := models.ParseSlot(chi.URLParam(r, "slot"))
	if !ok {
		h.writeError(w, r, "remove", engine.View{}, dErrors.New(dErrors.CodeNotFound, "unknown upload slot"))
		return
	}
	view, err := h.wizard.Remove(r.Context(), chi.URLParam(r, "id"), slot)
	h.respond(w, r, "remove", view, err)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Next(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "next", view, err)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Back(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "back", view, err)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	view, err := h.wizard.Submit(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, "submit", view, err)
}
