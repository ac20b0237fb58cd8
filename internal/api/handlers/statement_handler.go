package handlers

import (
	"errors"
	"io"

	"subtrack/internal/models"
	"subtrack/internal/repository"
	"subtrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StatementHandler struct {
	svc    *service.StatementService
	logger *zap.Logger
}

func NewStatementHandler(svc *service.StatementService, logger *zap.Logger) *StatementHandler {
	return &StatementHandler{
		svc:    svc,
		logger: logger,
	}
}

// Index starts a fresh session and serves the upload page.
func (h *StatementHandler) Index(c *fiber.Ctx) error {
	session, err := h.svc.NewSession(c.Context())
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	return c.Render("index", fiber.Map{
		"SessionID": session.ID.String(),
	}, "layout")
}

// Upload accepts one or more statement files, runs the extraction pipeline
// and responds with the subscription-list fragment.
func (h *StatementHandler) Upload(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.FormValue("session_id"))
	if err != nil {
		return h.renderError(c, fiber.StatusBadRequest, "Invalid session id")
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return h.renderError(c, fiber.StatusBadRequest, "At least one statement file is required")
	}

	var uploads []service.UploadedFile
	for _, fileHeader := range form.File["files"] {
		src, err := fileHeader.Open()
		if err != nil {
			return h.renderError(c, fiber.StatusBadRequest, "Failed to open uploaded file")
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return h.renderError(c, fiber.StatusBadRequest, "Failed to read uploaded file")
		}
		uploads = append(uploads, service.UploadedFile{Name: fileHeader.Filename, Data: data})
	}

	session, err := h.svc.ProcessUpload(c.Context(), sessionID, uploads)
	if err != nil {
		h.logger.Error("Upload processing failed",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return h.renderError(c, fiber.StatusNotFound, "Unknown session, reload the page and try again")
		case errors.Is(err, service.ErrNoSubscriptions):
			return h.renderError(c, fiber.StatusUnprocessableEntity, "No subscriptions found in the uploaded statements")
		case errors.Is(err, service.ErrModel):
			return h.renderError(c, fiber.StatusBadGateway, "The extraction service could not process the statement, try again later")
		default:
			return h.renderError(c, fiber.StatusUnprocessableEntity, err.Error())
		}
	}

	return h.renderList(c, session)
}

// Categorize records a Keep/Cancel/Investigate choice for one subscription
// and responds with the refreshed list fragment.
func (h *StatementHandler) Categorize(c *fiber.Ctx) error {
	subscriptionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.renderError(c, fiber.StatusBadRequest, "Invalid subscription id")
	}

	sessionID, err := uuid.Parse(c.FormValue("session_id"))
	if err != nil {
		return h.renderError(c, fiber.StatusBadRequest, "Invalid session id")
	}

	session, err := h.svc.Categorize(c.Context(), sessionID, subscriptionID, c.FormValue("category"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCategory):
			return h.renderError(c, fiber.StatusBadRequest, "Category must be keep, cancel or investigate")
		case errors.Is(err, repository.ErrNotFound):
			return h.renderError(c, fiber.StatusNotFound, "Unknown subscription")
		default:
			h.logger.Error("Categorize failed", zap.Error(err))
			return fiber.ErrInternalServerError
		}
	}

	return h.renderList(c, session)
}

// Report renders the savings summary page.
func (h *StatementHandler) Report(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		return h.renderError(c, fiber.StatusBadRequest, "Invalid session id")
	}

	report, err := h.svc.BuildReport(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return h.renderError(c, fiber.StatusNotFound, "Unknown session")
		}
		h.logger.Error("Report failed", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	return c.Render("report", fiber.Map{
		"Total":         report.Total,
		"Keep":          report.Keep,
		"Cancel":        report.Cancel,
		"Investigate":   report.Investigate,
		"Pending":       report.Pending,
		"MonthlySaving": report.MonthlySaving.StringFixed(2),
		"YearlySaving":  report.YearlySaving.StringFixed(2),
		"TotalMonthly":  report.TotalMonthly.StringFixed(2),
		"TotalYearly":   report.TotalYearly.StringFixed(2),
	}, "layout")
}

func (h *StatementHandler) renderList(c *fiber.Ctx, session *models.Session) error {
	monthly, yearly := service.Totals(session.Subscriptions)
	return c.Render("subscriptions", fiber.Map{
		"SessionID":    session.ID.String(),
		"Subs":         session.Subscriptions,
		"TotalMonthly": monthly.StringFixed(2),
		"TotalYearly":  yearly.StringFixed(2),
	})
}

func (h *StatementHandler) renderError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).Render("error", fiber.Map{
		"Message": message,
	})
}
