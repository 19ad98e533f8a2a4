package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ignite/adaptive-core/internal/learning"
	"github.com/ignite/adaptive-core/internal/performance"
	"github.com/ignite/adaptive-core/internal/pkg/httputil"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
)

// writeError maps service errors onto the API error envelope. Internal
// details are logged and never returned for 5xx responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stateErr *learning.StateError
	switch {
	case errors.Is(err, learning.ErrMissingUserID), errors.Is(err, performance.ErrMissingCampaignID):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, learning.ErrProfileNotFound), errors.Is(err, performance.ErrCampaignNotFound):
		httputil.NotFound(w, err.Error())
	case errors.As(err, &stateErr):
		logger.Warn("request hit corrupted learning state",
			"path", r.URL.Path, "user_id", stateErr.UserID, "field", stateErr.Field, "error", err)
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "state_corruption",
			"stored learning state for this user could not be read")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		logger.Debug("request cancelled", "path", r.URL.Path)
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request timed out", "path", r.URL.Path, "error", err)
		httputil.ErrorCode(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		httputil.InternalError(w, err)
	}
}
