package http

import (
	"strings"

	"analyzer_server/adapter/out/statefile"
	"analyzer_server/core/port/in"
	"analyzer_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// AnalyzeHandler runs the fetch/extract/persist pipeline on demand.
type AnalyzeHandler struct {
	analyzeService in.AnalyzeService
	stateFile      *statefile.Store
}

func NewAnalyzeHandler(analyzeService in.AnalyzeService, stateFile *statefile.Store) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzeService: analyzeService,
		stateFile:      stateFile,
	}
}

func (h *AnalyzeHandler) Register(app fiber.Router) {
	app.Post("/analyze", h.Analyze)
}

type analyzeRequest struct {
	Emails []string `json:"emails"`
	Owner  string   `json:"owner"`
}

func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, 400, "invalid request body")
	}

	emails := make([]string, 0, len(req.Emails))
	for _, email := range req.Emails {
		if email = strings.TrimSpace(email); email != "" {
			emails = append(emails, email)
		}
	}
	if len(emails) == 0 {
		return ErrorResponse(c, 400, "emails is required")
	}

	result, err := h.analyzeService.Analyze(c.Context(), emails, req.Owner)
	if err != nil {
		return InternalErrorResponse(c, err, "analyze")
	}

	if len(result.MissingAuth) > 0 {
		return SuccessResponse(c, fiber.Map{
			"missing_auth": result.MissingAuth,
		})
	}

	// Legacy frontend path reads the snapshot file instead of the API.
	if h.stateFile != nil {
		if err := h.stateFile.Merge(result.Results); err != nil {
			logger.WithError(err).Warn("failed to update state file")
		}
	}

	return SuccessResponse(c, fiber.Map{
		"results":  result.Results,
		"inserted": result.Inserted,
	})
}
