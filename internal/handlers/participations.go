package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/teamform/internal/engine"
	"go.uber.org/zap"
)

// RegisterForCompetition регистрирует вызывающего (или его команду) на соревнование
func (h *Handler) RegisterForCompetition(c echo.Context) error {
	h.logger.Info("RegisterForCompetition: начало обработки запроса")

	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "RegisterForCompetition", err)
	}

	var req struct {
		CompetitionID int64   `json:"competition_id"`
		TeamID        *int64  `json:"team_id"`
		Mode          string  `json:"participation_mode"`
		Rank          *string `json:"rank"`
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "RegisterForCompetition", "invalid request body")
	}
	if req.CompetitionID <= 0 {
		return h.badRequest(c, "RegisterForCompetition", "competition_id is required")
	}

	records, err := h.svc.RegisterForCompetition(c.Request().Context(), engine.RegistrationRequest{
		CompetitionID: req.CompetitionID,
		UserID:        caller,
		TeamID:        req.TeamID,
		Mode:          req.Mode,
		Rank:          req.Rank,
	})
	if err != nil {
		return h.fail(c, "RegisterForCompetition", err)
	}

	h.logger.Info("RegisterForCompetition: регистрация выполнена",
		zap.Int64("competition_id", req.CompetitionID),
		zap.Int64("user_id", caller),
		zap.Int("records", len(records)))
	return c.JSON(http.StatusCreated, map[string]interface{}{"participations": records})
}

// CancelRegistration отменяет участие, параметры передаются в query
func (h *Handler) CancelRegistration(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "CancelRegistration", err)
	}

	competitionID, err := strconv.ParseInt(c.QueryParam("competition_id"), 10, 64)
	if err != nil || competitionID <= 0 {
		return h.badRequest(c, "CancelRegistration", "competition_id is required")
	}

	var teamID *int64
	if raw := c.QueryParam("team_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return h.badRequest(c, "CancelRegistration", "invalid team_id")
		}
		teamID = &id
	}

	if err := h.svc.CancelRegistration(c.Request().Context(), competitionID, caller, teamID); err != nil {
		return h.fail(c, "CancelRegistration", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUserParticipations записи участия вызывающего
func (h *Handler) ListUserParticipations(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "ListUserParticipations", err)
	}

	records, err := h.svc.ListUserParticipations(c.Request().Context(), caller)
	if err != nil {
		return h.fail(c, "ListUserParticipations", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"participations": records})
}
