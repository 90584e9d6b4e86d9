package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/models"
	"go.uber.org/zap"
)

// requireLeader проверяет, что вызывающий ведет команду
func (h *Handler) requireLeader(c echo.Context, teamID, caller int64) error {
	team, err := h.svc.GetTeam(c.Request().Context(), teamID)
	if err != nil {
		return err
	}
	if team.LeaderID != caller {
		return apperrors.ErrNotLeader
	}
	return nil
}

// CreateTeam создает команду, лидером становится вызывающий
func (h *Handler) CreateTeam(c echo.Context) error {
	h.logger.Info("CreateTeam: начало обработки запроса")

	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "CreateTeam", err)
	}

	var req struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		CompetitionID int64  `json:"competition_id"`
		NeedSkills    string `json:"need_skills"`
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "CreateTeam", "invalid request body")
	}

	team, err := h.svc.CreateTeam(c.Request().Context(), models.Team{
		Name:          req.Name,
		Description:   req.Description,
		LeaderID:      caller,
		CompetitionID: req.CompetitionID,
		NeedSkills:    req.NeedSkills,
	})
	if err != nil {
		return h.fail(c, "CreateTeam", err)
	}

	h.logger.Info("CreateTeam: команда успешно создана", zap.Int64("team_id", team.ID))
	return c.JSON(http.StatusCreated, map[string]interface{}{"team": team})
}

// GetTeam получает команду по ID
func (h *Handler) GetTeam(c echo.Context) error {
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "GetTeam", err)
	}

	team, err := h.svc.GetTeam(c.Request().Context(), teamID)
	if err != nil {
		return h.fail(c, "GetTeam", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"team": team})
}

// DeleteTeam удаляет команду, доступно только лидеру
func (h *Handler) DeleteTeam(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "DeleteTeam", err)
	}
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "DeleteTeam", err)
	}

	if err := h.svc.DeleteTeam(c.Request().Context(), teamID, caller); err != nil {
		return h.fail(c, "DeleteTeam", err)
	}

	h.logger.Info("DeleteTeam: команда удалена", zap.Int64("team_id", teamID))
	return c.NoContent(http.StatusNoContent)
}

// ListTeamMembers список участников команды
func (h *Handler) ListTeamMembers(c echo.Context) error {
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "ListTeamMembers", err)
	}

	members, err := h.svc.ListTeamMembers(c.Request().Context(), teamID)
	if err != nil {
		return h.fail(c, "ListTeamMembers", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"team_id": teamID,
		"members": members,
	})
}

// AddTeamMember лидер напрямую добавляет участника
func (h *Handler) AddTeamMember(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "AddTeamMember", err)
	}
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "AddTeamMember", err)
	}

	var req struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.UserID <= 0 {
		return h.badRequest(c, "AddTeamMember", "user_id is required")
	}

	if err := h.requireLeader(c, teamID, caller); err != nil {
		return h.fail(c, "AddTeamMember", err)
	}

	membership, err := h.svc.AddTeamMember(c.Request().Context(), teamID, req.UserID, req.Role)
	if err != nil {
		return h.fail(c, "AddTeamMember", err)
	}

	h.logger.Info("AddTeamMember: участник добавлен",
		zap.Int64("team_id", teamID), zap.Int64("user_id", req.UserID))
	return c.JSON(http.StatusCreated, map[string]interface{}{"membership": membership})
}

// RemoveTeamMember исключает участника. Лидер может исключить любого,
// участник может выйти сам
func (h *Handler) RemoveTeamMember(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "RemoveTeamMember", err)
	}
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "RemoveTeamMember", err)
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return h.fail(c, "RemoveTeamMember", err)
	}

	if caller != userID {
		if err := h.requireLeader(c, teamID, caller); err != nil {
			return h.fail(c, "RemoveTeamMember", err)
		}
	}

	removed, err := h.svc.RemoveTeamMember(c.Request().Context(), teamID, userID)
	if err != nil {
		return h.fail(c, "RemoveTeamMember", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"removed": removed})
}

// ApplyToJoinTeam заявка вызывающего на вступление в команду
func (h *Handler) ApplyToJoinTeam(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "ApplyToJoinTeam", err)
	}
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "ApplyToJoinTeam", err)
	}

	app, err := h.svc.ApplyToJoinTeam(c.Request().Context(), caller, teamID)
	if err != nil {
		return h.fail(c, "ApplyToJoinTeam", err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"application": app})
}

// ListTeamApplications заявки и приглашения команды, доступно лидеру
func (h *Handler) ListTeamApplications(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "ListTeamApplications", err)
	}
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "ListTeamApplications", err)
	}
	if err := h.requireLeader(c, teamID, caller); err != nil {
		return h.fail(c, "ListTeamApplications", err)
	}

	apps, err := h.svc.ListTeamApplications(c.Request().Context(), teamID)
	if err != nil {
		return h.fail(c, "ListTeamApplications", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"team_id":      teamID,
		"applications": apps,
	})
}

// InviteUserToTeam приглашение от лидера по username, email или телефону
func (h *Handler) InviteUserToTeam(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "InviteUserToTeam", err)
	}
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "InviteUserToTeam", err)
	}

	var req struct {
		Identifier string `json:"identifier"`
		Message    string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "InviteUserToTeam", "invalid request body")
	}

	invite, err := h.svc.InviteUserToTeam(c.Request().Context(), teamID, caller, req.Identifier, req.Message)
	if err != nil {
		return h.fail(c, "InviteUserToTeam", err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"application": invite})
}

// CalculateMatchScore оценка совместимости. По умолчанию считается для
// вызывающего, query-параметр user_id позволяет оценить другого пользователя
func (h *Handler) CalculateMatchScore(c echo.Context) error {
	teamID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "CalculateMatchScore", err)
	}

	var userID int64
	if raw := c.QueryParam("user_id"); raw != "" {
		userID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return h.badRequest(c, "CalculateMatchScore", "invalid user_id")
		}
	} else if userID, err = callerID(c); err != nil {
		return h.fail(c, "CalculateMatchScore", err)
	}

	score, err := h.svc.CalculateMatchScore(c.Request().Context(), teamID, userID)
	if err != nil {
		return h.fail(c, "CalculateMatchScore", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"team_id": teamID,
		"user_id": userID,
		"score":   score,
	})
}

// CalculateBatchMatchScores оценки вызывающего для нескольких команд
func (h *Handler) CalculateBatchMatchScores(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "CalculateBatchMatchScores", err)
	}

	var req struct {
		TeamIDs []int64 `json:"team_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "CalculateBatchMatchScores", "invalid request body")
	}

	scores, err := h.svc.CalculateBatchMatchScores(c.Request().Context(), req.TeamIDs, caller)
	if err != nil {
		return h.fail(c, "CalculateBatchMatchScores", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id": caller,
		"scores":  scores,
	})
}
