package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/hbagheri/mailflow/internal/engine"
	"github.com/hbagheri/mailflow/internal/model"
	"github.com/hbagheri/mailflow/internal/repository"
	"github.com/hbagheri/mailflow/internal/util"
)

type createCampaignReq struct {
	Name       string `json:"name"`
	TemplateID string `json:"template_id"`
	SendRate   int    `json:"send_rate"`
}

func createCampaignHandler(campaigns repository.CampaignsRepository, templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createCampaignReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.TemplateID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name and template_id are required"})
		}
		if req.SendRate <= 0 {
			req.SendRate = 10
		}

		if _, err := templates.GetByID(c.Request().Context(), req.TemplateID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown template_id"})
			}
			log.Errorf("load template: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		camp := model.Campaign{
			ID:         util.New(),
			Name:       req.Name,
			TemplateID: req.TemplateID,
			Status:     model.CampaignDraft,
			SendRate:   req.SendRate,
		}
		if err := campaigns.Create(c.Request().Context(), camp); err != nil {
			log.Errorf("create campaign: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusCreated, map[string]any{
			"id":          camp.ID,
			"name":        camp.Name,
			"template_id": camp.TemplateID,
			"status":      camp.Status.String(),
			"send_rate":   camp.SendRate,
		})
	}
}

func listCampaignsHandler(campaigns repository.CampaignsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var (
			cs  []model.Campaign
			err error
		)
		if raw := c.QueryParam("status"); raw != "" {
			st, ok := model.ParseCampaignStatus(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown status " + raw})
			}
			cs, err = campaigns.ListByStatus(c.Request().Context(), st)
		} else {
			cs, err = campaigns.List(c.Request().Context())
		}
		if err != nil {
			log.Errorf("list campaigns: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		out := make([]map[string]any, 0, len(cs))
		for _, camp := range cs {
			out = append(out, map[string]any{
				"id":          camp.ID,
				"name":        camp.Name,
				"template_id": camp.TemplateID,
				"status":      camp.Status.String(),
				"send_rate":   camp.SendRate,
				"created_at":  camp.CreatedAt,
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}

// controlError maps engine errors onto HTTP statuses: unknown campaign is
// 404, a state conflict is 409, anything else is a 500.
func controlError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "campaign not found"})
	case errors.Is(err, engine.ErrRunActive),
		errors.Is(err, engine.ErrAlreadySending),
		errors.Is(err, engine.ErrNotSending),
		errors.Is(err, engine.ErrTerminalStatus):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Errorf("campaign control: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func startCampaignHandler(ctrl Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ctrl.Start(c.Request().Context(), c.Param("id")); err != nil {
			return controlError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": model.CampaignSending.String()})
	}
}

func pauseCampaignHandler(ctrl Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ctrl.Pause(c.Request().Context(), c.Param("id")); err != nil {
			return controlError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": model.CampaignPaused.String()})
	}
}

func cancelCampaignHandler(ctrl Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := ctrl.Cancel(c.Request().Context(), c.Param("id")); err != nil {
			return controlError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": model.CampaignCancelled.String()})
	}
}

func campaignStatusHandler(ctrl Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		st, err := ctrl.Status(c.Request().Context(), c.Param("id"))
		if err != nil {
			return controlError(c, err)
		}
		return c.JSON(http.StatusOK, st)
	}
}

func requeueFailedHandler(ctrl Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		n, err := ctrl.RequeueFailed(c.Request().Context(), c.Param("id"))
		if err != nil {
			return controlError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"requeued": n})
	}
}

type sendTestReq struct {
	TestEmail string `json:"test_email"`
}

func sendTestHandler(ctrl Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendTestReq
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.TestEmail) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "test_email is required"})
		}
		res, err := ctrl.SendTest(c.Request().Context(), c.Param("id"), strings.TrimSpace(req.TestEmail))
		if err != nil {
			return controlError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":          string(res.Status),
			"provider_msg_id": res.ProviderMessageID,
			"error":           res.Error,
		})
	}
}
