package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/skillcheck/internal/apperror"
	"github.com/lshigami/skillcheck/internal/dto"
	"github.com/lshigami/skillcheck/internal/service"
	"github.com/rs/zerolog/log"
)

// CandidateHeader carries the authenticated candidate id, set by the
// gateway in front of this service.
const CandidateHeader = "X-Candidate-ID"

type SessionController struct {
	sessionService service.SessionService
}

func NewSessionController(ss service.SessionService) *SessionController {
	return &SessionController{sessionService: ss}
}

// RegisterRoutes mounts the candidate assessment endpoints on group.
func (c *SessionController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/applications/:application_id/assessment", c.StartAssessment)

	sessions := group.Group("/assessment-sessions/:session_id")
	sessions.GET("", c.GetSession)
	sessions.PUT("/answers", c.SubmitAnswer)
	sessions.POST("/events", c.LogEvent)
	sessions.POST("/submit", c.SubmitTest)
}

// StartAssessment godoc
// @Summary Start or resume the assessment of an application
// @Description Creates a timed session for the application's test, or returns the active one.
// @Tags Candidate - Assessment
// @Produce json
// @Param X-Candidate-ID header int true "Candidate ID"
// @Param application_id path int true "Application ID"
// @Success 200 {object} dto.SessionView
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already attempted, skill still valid, or retest cooldown"
// @Failure 503 {object} dto.ErrorResponse
// @Router /applications/{application_id}/assessment [post]
func (c *SessionController) StartAssessment(ctx *gin.Context) {
	candidateID, ok := candidateFromHeader(ctx)
	if !ok {
		return
	}
	applicationID, err := strconv.ParseUint(ctx.Param("application_id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid application ID format"})
		return
	}

	view, err := c.sessionService.Start(ctx.Request.Context(), uint(applicationID), candidateID)
	if err != nil {
		writeError(ctx, "StartAssessment", err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// GetSession godoc
// @Summary Get the current state of an assessment session
// @Tags Candidate - Assessment
// @Produce json
// @Param X-Candidate-ID header int true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionView
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Session expired or not found"
// @Router /assessment-sessions/{session_id} [get]
func (c *SessionController) GetSession(ctx *gin.Context) {
	candidateID, ok := candidateFromHeader(ctx)
	if !ok {
		return
	}
	view, err := c.sessionService.GetSession(ctx.Request.Context(), ctx.Param("session_id"), candidateID)
	if err != nil {
		writeError(ctx, "GetSession", err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// SubmitAnswer godoc
// @Summary Record or change the answer to a question
// @Tags Candidate - Assessment
// @Accept json
// @Produce json
// @Param X-Candidate-ID header int true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Param answer body dto.SubmitAnswerRequest true "Question and selected option"
// @Success 200 {object} dto.AnswerAccepted
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /assessment-sessions/{session_id}/answers [put]
func (c *SessionController) SubmitAnswer(ctx *gin.Context) {
	candidateID, ok := candidateFromHeader(ctx)
	if !ok {
		return
	}
	var req dto.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("SubmitAnswer: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.sessionService.SubmitAnswer(ctx.Request.Context(), ctx.Param("session_id"), candidateID, req.QuestionID, *req.SelectedOption)
	if err != nil {
		writeError(ctx, "SubmitAnswer", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// LogEvent godoc
// @Summary Log a proctoring event
// @Description TAB_SWITCH events count towards the violation limit and may submit the test.
// @Tags Candidate - Assessment
// @Accept json
// @Produce json
// @Param X-Candidate-ID header int true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Param event body dto.LogEventRequest true "Event"
// @Success 200 {object} dto.EventResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /assessment-sessions/{session_id}/events [post]
func (c *SessionController) LogEvent(ctx *gin.Context) {
	candidateID, ok := candidateFromHeader(ctx)
	if !ok {
		return
	}
	var req dto.LogEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.sessionService.LogEvent(ctx.Request.Context(), ctx.Param("session_id"), candidateID, req.EventType, req.EventData)
	if err != nil {
		writeError(ctx, "LogEvent", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SubmitTest godoc
// @Summary Submit the test
// @Tags Candidate - Assessment
// @Produce json
// @Param X-Candidate-ID header int true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.OutcomeSummary
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Session already submitted"
// @Router /assessment-sessions/{session_id}/submit [post]
func (c *SessionController) SubmitTest(ctx *gin.Context) {
	candidateID, ok := candidateFromHeader(ctx)
	if !ok {
		return
	}
	outcome, err := c.sessionService.SubmitTest(ctx.Request.Context(), ctx.Param("session_id"), candidateID)
	if err != nil {
		writeError(ctx, "SubmitTest", err)
		return
	}
	ctx.JSON(http.StatusOK, outcome)
}

func candidateFromHeader(ctx *gin.Context) (uint, bool) {
	raw := ctx.GetHeader(CandidateHeader)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing or invalid candidate identity"})
		return 0, false
	}
	return uint(id), true
}

func writeError(ctx *gin.Context, op string, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)

	evt := log.Warn()
	if status >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).Str("op", op).Str("kind", string(kind)).Msg("Request failed")

	resp := dto.ErrorResponse{Message: err.Error(), Code: string(kind)}
	// Storage and internal details stay in the logs.
	switch kind {
	case apperror.KindUnavailable:
		resp.Message = "Service temporarily unavailable, please retry"
	case apperror.KindUnknown:
		resp.Message = "Internal server error"
	}
	ctx.JSON(status, resp)
}
