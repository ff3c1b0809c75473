package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amirk1998/secure-bank/internal/logging"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Remaining string `json:"remaining,omitempty"`
}

var sentinels = []struct {
	err    error
	status int
	code   string
}{
	{errors.ErrAccountLocked, http.StatusLocked, "account_locked"},
	{errors.ErrSessionFrozen, http.StatusLocked, "session_frozen"},
	{errors.ErrSessionExpired, http.StatusUnauthorized, "session_expired"},
	{errors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{errors.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{errors.ErrVoiceNotEnrolled, http.StatusBadRequest, "voice_not_enrolled"},
	{errors.ErrUserAlreadyExists, http.StatusConflict, "user_exists"},
	{errors.ErrUserNotFound, http.StatusNotFound, "not_found"},
	{errors.ErrRecordNotFound, http.StatusNotFound, "not_found"},
	{errors.ErrAccountFrozen, http.StatusForbidden, "account_frozen"},
	{errors.ErrDobUpdateLimit, http.StatusForbidden, "dob_update_limit"},
	{errors.ErrWithdrawalPending, http.StatusForbidden, "withdrawal_not_permitted"},
	{errors.ErrFeatureNotActive, http.StatusConflict, "feature_not_active"},
	{errors.ErrReauthRequired, http.StatusForbidden, "reauth_required"},
	{errors.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limited"},
	{errors.ErrInsufficientBaseline, http.StatusBadRequest, "insufficient_baseline"},
	{errors.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds"},
	{errors.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{errors.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{errors.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{errors.ErrInvalidMobile, http.StatusBadRequest, "invalid_mobile"},
	{errors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{errors.ErrOracleUnavailable, http.StatusServiceUnavailable, "oracle_unavailable"},
	{errors.ErrOracleMalformed, http.StatusBadGateway, "oracle_malformed"},
}

// respondError maps err onto a status code and JSON body. Anything not
// recognised is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	var timed *errors.TimedError
	if errors.As(err, &timed) {
		status, code := classify(timed.Err)
		c.Header("Retry-After", strconv.Itoa(int(timed.Remaining().Seconds())+1))
		c.AbortWithStatusJSON(status, errorBody{Error: code, Message: timed.Error(), Remaining: timed.Countdown()})
		return
	}

	status, code := classify(err)

	message := ""
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		if appErr.Code != 0 {
			status = appErr.Code
		}
		message = appErr.Message
	}

	if status == http.StatusInternalServerError {
		logging.L(c.Request.Context()).Error("request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, errorBody{Error: code, Message: "internal server error"})
		return
	}

	if message == "" {
		message = err.Error()
	}
	if status == http.StatusTooManyRequests {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, errorBody{Error: code, Message: message})
}

func classify(err error) (int, string) {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.status, s.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "invalid_request", Message: message})
}
