package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeConflict      = "conflict"

	// Account errors
	ErrCodeRegistrationFailed = "registration_failed"
	ErrCodeLoginFailed        = "login_failed"
	ErrCodeRefreshFailed      = "refresh_failed"
	ErrCodeLogoutFailed       = "logout_failed"

	// Study errors
	ErrCodeNoCategorySelected = "no_category_selected"
	ErrCodeUnknownCategory    = "unknown_category"
	ErrCodeUnknownTopic       = "unknown_topic"
	ErrCodeUnknownLanguage    = "unknown_language"
	ErrCodeInvalidNavigation  = "invalid_navigation"
	ErrCodeQuestionsFailed    = "questions_fetch_failed"

	// Exam errors
	ErrCodeExamNotFound       = "exam_not_found"
	ErrCodeExamStartFailed    = "exam_start_failed"
	ErrCodeExamFinished       = "exam_finished"
	ErrCodeAlreadyAnswered    = "already_answered"
	ErrCodeInvalidAnswer      = "invalid_answer"
	ErrCodeNotCurrentQuestion = "not_current_question"

	// Media errors
	ErrCodeMediaNotFound = "media_not_found"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// OAuth errors
	ErrCodeOAuthNotConfigured  = "oauth_not_configured"
	ErrCodeOAuthStartFailed    = "oauth_start_failed"
	ErrCodeOAuthCallbackFailed = "oauth_callback_failed"
	ErrCodeOAuthMissingCode    = "missing_code"
	ErrCodeOAuthInvalidState   = "invalid_state"
)
