package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/engine"
	"go.uber.org/zap"
)

// HeaderUserID заголовок с ID вызывающего пользователя. Аутентификацию
// выполняет шлюз перед сервисом
const HeaderUserID = "X-User-ID"

var errMissingCaller = apperrors.New(apperrors.CodeInvalidInput, HeaderUserID+" header is required")

type Handler struct {
	svc    *engine.Service
	logger *zap.Logger
}

// New создает новый экземпляр обработчика
func New(svc *engine.Service, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// ErrorResponse представляет структуру ошибки API
type ErrorResponse struct {
	Error struct {
		Code     string            `json:"code"`
		Message  string            `json:"message"`
		Metadata map[string]string `json:"metadata,omitempty"`
	} `json:"error"`
}

// newErrorResponse создает стандартный ответ с ошибкой
func newErrorResponse(code apperrors.Code, message string, metadata map[string]string) ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = string(code)
	resp.Error.Message = message
	resp.Error.Metadata = metadata
	return resp
}

// fail пишет ответ с ошибкой. Доменные ошибки отдаются клиенту как есть,
// внутренние логируются и скрываются
func (h *Handler) fail(c echo.Context, op string, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		h.logger.Error(op+": внутренняя ошибка", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(apperrors.CodeInternal, "internal error", nil))
	}

	h.logger.Warn(op+": запрос отклонен", zap.String("code", string(appErr.Code)), zap.Error(err))
	return c.JSON(appErr.Code.HTTPStatus(), newErrorResponse(appErr.Code, appErr.Message, appErr.Metadata))
}

func (h *Handler) badRequest(c echo.Context, op, message string) error {
	h.logger.Warn(op+": некорректный запрос", zap.String("reason", message))
	return c.JSON(http.StatusBadRequest, newErrorResponse(apperrors.CodeInvalidInput, message, nil))
}

// callerID читает ID вызывающего из заголовка
func callerID(c echo.Context) (int64, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
	if raw == "" {
		return 0, errMissingCaller
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid "+HeaderUserID+" header", err)
	}
	return id, nil
}

// pathID разбирает числовой параметр пути
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid path parameter "+name, err)
	}
	return id, nil
}

// RegisterRoutes регистрирует все маршруты API
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Teams
	e.POST("/teams", h.CreateTeam)
	e.GET("/teams/:id", h.GetTeam)
	e.DELETE("/teams/:id", h.DeleteTeam)
	e.GET("/teams/:id/members", h.ListTeamMembers)
	e.POST("/teams/:id/members", h.AddTeamMember)
	e.DELETE("/teams/:id/members/:userId", h.RemoveTeamMember)
	e.POST("/teams/:id/applications", h.ApplyToJoinTeam)
	e.GET("/teams/:id/applications", h.ListTeamApplications)
	e.POST("/teams/:id/invitations", h.InviteUserToTeam)
	e.GET("/teams/:id/match-score", h.CalculateMatchScore)
	e.POST("/match-scores", h.CalculateBatchMatchScores)

	// Applications
	e.POST("/applications/review", h.BatchReviewApplications)
	e.POST("/applications/:id/review", h.ReviewApplication)
	e.DELETE("/applications/:id", h.CancelApplication)

	// Invitations
	e.POST("/invitations/respond", h.BatchRespondToInvitations)
	e.POST("/invitations/:id/respond", h.RespondToInvitation)

	// Current user
	e.GET("/users/me/applications", h.ListUserApplications)
	e.GET("/users/me/invitations", h.ListUserInvitations)
	e.GET("/users/me/pending-reviews", h.ListPendingReviews)
	e.GET("/users/me/participations", h.ListUserParticipations)

	// Participations
	e.POST("/participations", h.RegisterForCompetition)
	e.DELETE("/participations", h.CancelRegistration)
}
