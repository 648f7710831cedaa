package learning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/auth"
	"github.com/gokatarajesh/theory-exam/internal/i18n"
	"github.com/gokatarajesh/theory-exam/internal/progress"
	httperrors "github.com/gokatarajesh/theory-exam/pkg/http/errors"
)

// LanguageSource returns a user's saved language.
type LanguageSource interface {
	Language(ctx context.Context, userID uuid.UUID) i18n.Lang
}

// HTTPHandlers provides REST endpoints for learning and practice.
type HTTPHandlers struct {
	service *Service
	langs   LanguageSource
	logger  zerolog.Logger
}

func NewHTTPHandlers(service *Service, langs LanguageSource, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		langs:   langs,
		logger:  logger.With().Str("component", "learning_http").Logger(),
	}
}

type moveRequest struct {
	Action string `json:"action"`
	Index  *int   `json:"index,omitempty"`
}

// Open handles GET /v1/learning
func (h *HTTPHandlers) Open(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	lang := i18n.ForUser(r, h.langs.Language(r.Context(), userID))
	view, err := h.service.Open(r.Context(), userID, lang)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

// Move handles POST /v1/learning/move with {"action":"next"|"prev"|"goto","index":n}
func (h *HTTPHandlers) Move(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	target := 0
	if req.Action == ActionGoto {
		if req.Index == nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "goto needs an index", "index")
			return
		}
		target = *req.Index
	}

	lang := i18n.ForUser(r, h.langs.Language(r.Context(), userID))
	view, err := h.service.Move(r.Context(), userID, req.Action, target, lang)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

// Practice handles GET /v1/practice/{topic}?index=n&lang=xx
func (h *HTTPHandlers) Practice(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	index := 0
	if raw := r.URL.Query().Get("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidNavigation, "index must be a number", "index")
			return
		}
		index = n
	}

	// empty means the saved language
	lang, _ := i18n.Parse(r.URL.Query().Get(i18n.LangParam))

	view, err := h.service.Topic(r.Context(), userID, r.PathValue("topic"), index, lang)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandlers) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrNoLicense):
		httperrors.RespondConflict(w, httperrors.ErrCodeNoCategorySelected, "Select a license category first")
	case errors.Is(err, ErrUnknownTopic):
		httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownTopic, "Unknown practice topic")
	case errors.Is(err, ErrUnknownAction):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidNavigation, "action must be next, prev or goto", "action")
	default:
		h.logger.Error().Err(err).Msg("learning request failed")
		httperrors.RespondInternalError(w, "Learning request failed")
	}
}
