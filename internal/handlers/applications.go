package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/models"
	"go.uber.org/zap"
)

type reviewRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// canReview рассматривать можно только заявки типа apply и только лидеру
// команды. На приглашение отвечает сам приглашенный
func (h *Handler) canReview(ctx context.Context, applicationID, caller int64) error {
	app, err := h.svc.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.LeaderID != caller {
		return apperrors.ErrNotLeader
	}
	if app.Type != models.ApplicationApply {
		return apperrors.ErrNotAnApplication
	}
	return nil
}

// ReviewApplication одобрение или отклонение заявки лидером
func (h *Handler) ReviewApplication(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "ReviewApplication", err)
	}
	applicationID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "ReviewApplication", err)
	}

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "ReviewApplication", "invalid request body")
	}

	ctx := c.Request().Context()
	if err := h.canReview(ctx, applicationID, caller); err != nil {
		return h.fail(c, "ReviewApplication", err)
	}

	app, err := h.svc.ReviewApplication(ctx, applicationID, req.Approved, req.Reason)
	if err != nil {
		return h.fail(c, "ReviewApplication", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"application": app})
}

// BatchReviewApplications пакетное рассмотрение. Чужие заявки пропускаются
// так же, как любые другие неуспешные
func (h *Handler) BatchReviewApplications(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "BatchReviewApplications", err)
	}

	var req struct {
		ApplicationIDs []int64 `json:"application_ids"`
		reviewRequest
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "BatchReviewApplications", "invalid request body")
	}

	ctx := c.Request().Context()
	allowed := make([]int64, 0, len(req.ApplicationIDs))
	for _, id := range req.ApplicationIDs {
		if err := h.canReview(ctx, id, caller); err != nil {
			h.logger.Warn("BatchReviewApplications: заявка недоступна",
				zap.Int64("application_id", id), zap.Int64("caller_id", caller), zap.Error(err))
			continue
		}
		allowed = append(allowed, id)
	}

	processed := h.svc.BatchReviewApplications(ctx, allowed, req.Approved, req.Reason)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"requested": len(req.ApplicationIDs),
		"processed": processed,
	})
}

// CancelApplication отзыв собственной ожидающей заявки или приглашения
func (h *Handler) CancelApplication(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "CancelApplication", err)
	}
	applicationID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "CancelApplication", err)
	}

	deleted, err := h.svc.CancelApplication(c.Request().Context(), applicationID, caller)
	if err != nil {
		return h.fail(c, "CancelApplication", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"deleted": deleted})
}

type respondRequest struct {
	Accepted bool `json:"accepted"`
}

// RespondToInvitation ответ приглашенного
func (h *Handler) RespondToInvitation(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "RespondToInvitation", err)
	}
	invitationID, err := pathID(c, "id")
	if err != nil {
		return h.fail(c, "RespondToInvitation", err)
	}

	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "RespondToInvitation", "invalid request body")
	}

	app, err := h.svc.RespondToInvitation(c.Request().Context(), invitationID, caller, req.Accepted)
	if err != nil {
		return h.fail(c, "RespondToInvitation", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"application": app})
}

// BatchRespondToInvitations пакетный ответ на приглашения
func (h *Handler) BatchRespondToInvitations(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "BatchRespondToInvitations", err)
	}

	var req struct {
		InvitationIDs []int64 `json:"invitation_ids"`
		respondRequest
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "BatchRespondToInvitations", "invalid request body")
	}

	processed := h.svc.BatchRespondToInvitations(c.Request().Context(), req.InvitationIDs, caller, req.Accepted)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"requested": len(req.InvitationIDs),
		"processed": processed,
	})
}

// ListUserApplications все заявки вызывающего
func (h *Handler) ListUserApplications(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "ListUserApplications", err)
	}
	apps, err := h.svc.ListUserApplications(c.Request().Context(), caller)
	if err != nil {
		return h.fail(c, "ListUserApplications", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"applications": apps})
}

// ListUserInvitations ожидающие приглашения вызывающего
func (h *Handler) ListUserInvitations(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "ListUserInvitations", err)
	}
	apps, err := h.svc.ListUserInvitations(c.Request().Context(), caller)
	if err != nil {
		return h.fail(c, "ListUserInvitations", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"invitations": apps})
}

// ListPendingReviews ожидающие заявки во все команды вызывающего
func (h *Handler) ListPendingReviews(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return h.fail(c, "ListPendingReviews", err)
	}
	apps, err := h.svc.ListPendingForLeader(c.Request().Context(), caller)
	if err != nil {
		return h.fail(c, "ListPendingReviews", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"applications": apps})
}
