package http

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/hbagheri/mailflow/internal/model"
	"github.com/hbagheri/mailflow/internal/repository"
	"github.com/hbagheri/mailflow/internal/util"
)

// Thin persistence glue for templates and subscribers: just enough surface
// to set up and drive a campaign. Full CRUD/editing stays out of scope.

type createTemplateReq struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text_content"`
}

func createTemplateHandler(templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTemplateReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.HTML) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "subject and html are required"})
		}

		tpl := model.Template{
			ID:      util.New(),
			Name:    strings.TrimSpace(req.Name),
			Subject: req.Subject,
			HTML:    req.HTML,
			Text:    sql.NullString{String: req.Text, Valid: req.Text != ""},
		}
		if err := templates.Create(c.Request().Context(), tpl); err != nil {
			log.Errorf("create template: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusCreated, map[string]string{"id": tpl.ID})
	}
}

func listTemplatesHandler(templates repository.TemplatesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		ts, err := templates.List(c.Request().Context())
		if err != nil {
			log.Errorf("list templates: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		out := make([]map[string]any, 0, len(ts))
		for _, t := range ts {
			out = append(out, map[string]any{
				"id":      t.ID,
				"name":    t.Name,
				"subject": t.Subject,
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}

type createSubscriberReq struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func createSubscriberHandler(subscribers repository.SubscribersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createSubscriberReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "valid email is required"})
		}

		sub := model.Subscriber{
			ID:     util.New(),
			Email:  req.Email,
			Name:   strings.TrimSpace(req.Name),
			Status: model.SubscriberActive,
		}
		if err := subscribers.Create(c.Request().Context(), sub); err != nil {
			log.Errorf("create subscriber: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusCreated, map[string]string{"id": sub.ID})
	}
}

func listSubscribersHandler(subscribers repository.SubscribersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		ss, err := subscribers.List(c.Request().Context())
		if err != nil {
			log.Errorf("list subscribers: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		out := make([]map[string]any, 0, len(ss))
		for _, s := range ss {
			out = append(out, map[string]any{
				"id":     s.ID,
				"email":  s.Email,
				"name":   s.Name,
				"status": s.Status.String(),
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}
