package progress

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/auth"
	"github.com/gokatarajesh/theory-exam/internal/i18n"
	"github.com/gokatarajesh/theory-exam/internal/question"
	httperrors "github.com/gokatarajesh/theory-exam/pkg/http/errors"
)

// Translator resolves catalog labels.
type Translator interface {
	T(lang i18n.Lang, key string, args ...interface{}) string
}

// HTTPHandlers exposes category selection, settings and stats.
type HTTPHandlers struct {
	service *Service
	labels  Translator
	logger  zerolog.Logger
}

func NewHTTPHandlers(service *Service, labels Translator, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		labels:  labels,
		logger:  logger.With().Str("component", "progress_http").Logger(),
	}
}

type catalogEntry struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type catalogResponse struct {
	Language string         `json:"language"`
	Selected string         `json:"selected,omitempty"`
	Licenses []catalogEntry `json:"licenses"`
	Topics   []catalogEntry `json:"topics"`
}

type selectionRequest struct {
	License string `json:"license"`
}

type languageRequest struct {
	Language string `json:"language"`
}

type statsResponse struct {
	Stats
	License string `json:"license,omitempty"`
}

// Catalog handles GET /v1/catalog
func (h *HTTPHandlers) Catalog(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	lang := i18n.ForUser(r, h.service.Language(r.Context(), userID))

	resp := catalogResponse{
		Language: string(lang),
		Licenses: make([]catalogEntry, 0, len(question.Licenses)),
		Topics:   make([]catalogEntry, 0, len(question.Topics)),
	}
	if license, err := h.service.License(r.Context(), userID); err == nil {
		resp.Selected = license
	} else if !errors.Is(err, ErrNoLicense) {
		h.logger.Warn().Err(err).Msg("read selected license failed")
	}
	for _, l := range question.Licenses {
		resp.Licenses = append(resp.Licenses, catalogEntry{
			Code:        l.Code,
			Label:       h.labels.T(lang, l.Key),
			Description: h.labels.T(lang, l.Key+"_desc"),
		})
	}
	for _, t := range question.Topics {
		resp.Topics = append(resp.Topics, catalogEntry{
			Code:        t.Key,
			Label:       h.labels.T(lang, t.Key),
			Description: h.labels.T(lang, t.Key+"_desc"),
		})
	}
	httperrors.RespondJSON(w, http.StatusOK, resp)
}

// Select handles PUT /v1/selection
func (h *HTTPHandlers) Select(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	lic, err := h.service.SelectLicense(r.Context(), userID, req.License)
	switch {
	case errors.Is(err, ErrUnknownLicense):
		httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownCategory, "Unknown license category", "license")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("select license failed")
		httperrors.RespondInternalError(w, "Failed to save the category")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]string{"license": lic.Code})
}

// Reset handles DELETE /v1/selection
func (h *HTTPHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	if err := h.service.ClearLicense(r.Context(), userID); err != nil {
		h.logger.Error().Err(err).Msg("clear license failed")
		httperrors.RespondInternalError(w, "Failed to reset the category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetLanguage handles PUT /v1/settings/language
func (h *HTTPHandlers) SetLanguage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	lang, err := h.service.SetLanguage(r.Context(), userID, req.Language)
	switch {
	case errors.Is(err, ErrUnknownLanguage):
		httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownLanguage, "Supported languages: pl, de, ua, en", "language")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("set language failed")
		httperrors.RespondInternalError(w, "Failed to save the language")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]string{"language": string(lang)})
}

// Stats handles GET /v1/stats
func (h *HTTPHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	st, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		// degrade to zero counters
		h.logger.Warn().Err(err).Msg("read stats failed")
	}
	resp := statsResponse{Stats: st}
	if license, err := h.service.License(r.Context(), userID); err == nil {
		resp.License = license
	}
	httperrors.RespondJSON(w, http.StatusOK, resp)
}
