// Package http exposes the patient access gate over HTTP: grant status, DOB
// verification, extension and revocation for the caller's session.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
	"github.com/openspace-ehr/phiguard/internal/access/http/dto"
	accessUseCase "github.com/openspace-ehr/phiguard/internal/access/usecase"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	"github.com/openspace-ehr/phiguard/internal/httputil"
	"github.com/openspace-ehr/phiguard/internal/session"
	customValidation "github.com/openspace-ehr/phiguard/internal/validation"
)

// errNoSession means SessionMiddleware is not installed on the route.
var errNoSession = apperrors.New("request has no session")

// AccessHandler handles the patient access endpoints.
type AccessHandler struct {
	guard         accessUseCase.PatientAccessGuard
	dobProvider   accessUseCase.DOBProvider
	expiryWarning time.Duration
	logger        *slog.Logger
}

// NewAccessHandler creates an AccessHandler. expiryWarning is the threshold
// reported as expiring_soon.
func NewAccessHandler(
	guard accessUseCase.PatientAccessGuard,
	dobProvider accessUseCase.DOBProvider,
	expiryWarning time.Duration,
	logger *slog.Logger,
) *AccessHandler {
	return &AccessHandler{
		guard:         guard,
		dobProvider:   dobProvider,
		expiryWarning: expiryWarning,
		logger:        logger,
	}
}

func (h *AccessHandler) requestSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.FromContext(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, errNoSession, h.logger)
		return nil, false
	}
	return sess, true
}

// StatusHandler reports whether the session may open the patient's chart.
// GET /v1/patients/:patient_id/access
func (h *AccessHandler) StatusHandler(c *gin.Context) {
	sess, ok := h.requestSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	patientID := c.Param("patient_id")

	enabled := h.guard.IsProtectionEnabled(ctx)
	verified := h.guard.HasAccess(ctx, sess, patientID)
	expiringSoon := h.guard.IsExpiringSoon(ctx, sess, patientID, h.expiryWarning)
	remaining, _ := h.guard.Remaining(ctx, sess, patientID)

	c.JSON(http.StatusOK, dto.MapToAccessStatusResponse(patientID, enabled, verified, expiringSoon, remaining))
}

// VerifyHandler checks the entered date of birth against the record and
// grants access on match.
// POST /v1/patients/:patient_id/access/verify
//
// Mismatches answer 403 with a generic message; a locked out session answers
// 423 with Retry-After.
func (h *AccessHandler) VerifyHandler(c *gin.Context) {
	sess, ok := h.requestSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	patientID := c.Param("patient_id")

	var req dto.VerifyAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	// With protection disabled Verify grants without a comparison, so the
	// record lookup is skipped.
	var actualDOB string
	if h.guard.IsProtectionEnabled(ctx) {
		dob, err := h.dobProvider.DateOfBirth(ctx, patientID)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		actualDOB = dob
	}

	if err := h.guard.Verify(ctx, sess, patientID, req.DOB, actualDOB); err != nil {
		if apperrors.Is(err, accessDomain.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, httputil.ErrorResponse{
				Error:   "access_denied",
				Message: "Date of birth does not match our records",
			})
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.respondVerified(c, sess, patientID)
}

// ExtendHandler pushes the grant expiry out by a full lifetime.
// POST /v1/patients/:patient_id/access/extend
func (h *AccessHandler) ExtendHandler(c *gin.Context) {
	sess, ok := h.requestSession(c)
	if !ok {
		return
	}
	patientID := c.Param("patient_id")

	if !h.guard.Extend(c.Request.Context(), sess, patientID) {
		c.JSON(http.StatusForbidden, httputil.ErrorResponse{
			Error:   "verification_required",
			Message: "Date of birth verification is required",
		})
		return
	}

	h.respondVerified(c, sess, patientID)
}

func (h *AccessHandler) respondVerified(c *gin.Context, sess *session.Session, patientID string) {
	remaining, _ := h.guard.Remaining(c.Request.Context(), sess, patientID)
	c.JSON(http.StatusOK, dto.VerifyAccessResponse{
		PatientID:        patientID,
		Verified:         true,
		RemainingSeconds: dto.Seconds(remaining),
	})
}

// RevokeHandler drops the session's grant for one patient.
// DELETE /v1/patients/:patient_id/access
func (h *AccessHandler) RevokeHandler(c *gin.Context) {
	sess, ok := h.requestSession(c)
	if !ok {
		return
	}

	if err := h.guard.Revoke(c.Request.Context(), sess, c.Param("patient_id")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

// RevokeAllHandler drops every grant held by the session, e.g. on logout.
// DELETE /v1/access
func (h *AccessHandler) RevokeAllHandler(c *gin.Context) {
	sess, ok := h.requestSession(c)
	if !ok {
		return
	}

	if err := h.guard.RevokeAll(c.Request.Context(), sess); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}
