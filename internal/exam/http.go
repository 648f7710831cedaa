package exam

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

// HTTPHandlers provides REST endpoints for exams.
type HTTPHandlers struct {
	service *Service
	viewer  *Viewer
	langs   LanguageSource
	logger  zerolog.Logger
}

func NewHTTPHandlers(service *Service, viewer *Viewer, langs LanguageSource, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		viewer:  viewer,
		langs:   langs,
		logger:  logger.With().Str("component", "exam_http").Logger(),
	}
}

// AnswerRequest is the body of POST /v1/exams/{id}/answers.
type AnswerRequest struct {
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

// Start handles POST /v1/exams
func (h *HTTPHandlers) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	sess, err := h.service.Start(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, h.render(r, userID, sess))
}

// Current handles GET /v1/exams/current
func (h *HTTPHandlers) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	sess, err := h.service.Latest(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, h.render(r, userID, sess))
}

// Get handles GET /v1/exams/{id}
func (h *HTTPHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.identify(w, r)
	if !ok {
		return
	}

	sess, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, h.render(r, userID, sess))
}

// Answer handles POST /v1/exams/{id}/answers
func (h *HTTPHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.identify(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	sess, err := h.service.Answer(r.Context(), userID, id, req.Index, req.Answer)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, h.render(r, userID, sess))
}

// Retry handles POST /v1/exams/{id}/retry
func (h *HTTPHandlers) Retry(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.identify(w, r)
	if !ok {
		return
	}

	sess, err := h.service.Retry(r.Context(), userID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, h.render(r, userID, sess))
}

// History handles GET /v1/exams/history?limit=n
func (h *HTTPHandlers) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "limit must be between 1 and 100", "limit")
			return
		}
		limit = n
	}

	results, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("load exam history failed")
		httperrors.RespondInternalError(w, "Failed to load exam history")
		return
	}

	type entry struct {
		SessionID  uuid.UUID `json:"exam_id"`
		Attempt    int       `json:"attempt"`
		License    string    `json:"license"`
		Score      int       `json:"score"`
		MaxScore   int       `json:"max_score"`
		Correct    int       `json:"correct"`
		Total      int       `json:"total"`
		Expired    bool      `json:"expired"`
		FinishedAt string    `json:"finished_at"`
	}
	out := make([]entry, len(results))
	for i, res := range results {
		out[i] = entry{
			SessionID:  res.SessionID,
			Attempt:    res.Attempt,
			License:    res.License,
			Score:      res.Score,
			MaxScore:   res.MaxScore,
			Correct:    res.CorrectCount,
			Total:      res.QuestionCount,
			Expired:    res.Expired,
			FinishedAt: res.FinishedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"results": out})
}

func (h *HTTPHandlers) identify(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeExamNotFound, "Exam not found")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func (h *HTTPHandlers) render(r *http.Request, userID uuid.UUID, sess *Session) View {
	lang := i18n.ForUser(r, h.langs.Language(r.Context(), userID))
	return h.viewer.Render(r.Context(), sess, lang)
}

func (h *HTTPHandlers) respondError(w http.ResponseWriter, err error) {
	code, status, msg := errorCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("exam request failed")
	}
	httperrors.RespondError(w, status, code, msg)
}

// errorCode maps service errors to the API error envelope.
func errorCode(err error) (code string, status int, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return httperrors.ErrCodeExamNotFound, http.StatusNotFound, "Exam not found"
	case errors.Is(err, progress.ErrNoLicense):
		return httperrors.ErrCodeNoCategorySelected, http.StatusConflict, "Select a license category first"
	case errors.Is(err, ErrNoQuestions):
		return httperrors.ErrCodeExamStartFailed, http.StatusUnprocessableEntity, "No questions available for the selected category"
	case errors.Is(err, ErrQuestionsFailed):
		return httperrors.ErrCodeQuestionsFailed, http.StatusBadGateway, "Could not load questions"
	case errors.Is(err, ErrFinished):
		return httperrors.ErrCodeExamFinished, http.StatusConflict, "Exam already finished"
	case errors.Is(err, ErrAlreadyAnswered):
		return httperrors.ErrCodeAlreadyAnswered, http.StatusConflict, "Question already answered"
	case errors.Is(err, ErrNotCurrent):
		return httperrors.ErrCodeNotCurrentQuestion, http.StatusConflict, "Only the current question can be answered"
	case errors.Is(err, ErrInvalidIndex):
		return httperrors.ErrCodeValidationFailed, http.StatusBadRequest, "Question index out of range"
	case errors.Is(err, ErrInvalidAnswer):
		return httperrors.ErrCodeInvalidAnswer, http.StatusBadRequest, "Answer not allowed for this question"
	case errors.Is(err, ErrBusy):
		return httperrors.ErrCodeConflict, http.StatusConflict, "Exam is being updated, try again"
	default:
		return httperrors.ErrCodeInternalError, http.StatusInternalServerError, "Exam request failed"
	}
}
