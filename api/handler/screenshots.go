package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/screenshot"
)

var errStorageDisabled = models.NewScrapeError(models.ErrCodeNotFound,
	"screenshot storage is disabled (base64 mode)", nil)

// ListScreenshots returns a handler for GET /api/v1/screenshots.
func ListScreenshots(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc.Store == nil {
			respondError(c, errStorageDisabled, svc.timestamp())
			return
		}

		files, err := svc.Store.List()
		if err != nil {
			slog.Error("listing screenshots failed", "error", err)
			respondError(c, models.NewScrapeError(models.ErrCodeInternal, "could not list screenshots", err), svc.timestamp())
			return
		}

		out := make([]models.ScreenshotInfo, 0, len(files))
		for _, f := range files {
			out = append(out, models.ScreenshotInfo{
				Name:      f.Name,
				Size:      f.Size,
				URL:       ScreenshotPathPrefix + f.Name,
				CreatedAt: f.ModTime.UTC().Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, models.ScreenshotListResponse{Total: len(out), Screenshots: out})
	}
}

// GetScreenshot returns a handler for GET /api/v1/screenshots/:name.
func GetScreenshot(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc.Store == nil {
			respondError(c, errStorageDisabled, svc.timestamp())
			return
		}

		name := c.Param("name")
		path, err := svc.Store.Path(name)
		switch {
		case errors.Is(err, screenshot.ErrInvalidName):
			invalidInput(c, "invalid screenshot name", svc.timestamp())
			return
		case errors.Is(err, screenshot.ErrNotFound):
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "screenshot not found", nil), svc.timestamp())
			return
		case err != nil:
			respondError(c, models.NewScrapeError(models.ErrCodeInternal, "could not read screenshot", err), svc.timestamp())
			return
		}

		c.Header("Content-Type", "image/png")
		c.File(path)
	}
}
