//go:build integration

package engine_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/engine"
	"github.com/use-agent/shelfscan/models"
)

// Requires a local Chromium; run with: go test -tags integration ./engine/
func TestRodEngine_RendersScriptContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/frame":
			_, _ = w.Write([]byte(`<html><body>Conteúdo do iframe com descrição longa</body></html>`))
		default:
			_, _ = w.Write([]byte(`<html><body><div id="root"></div>
				<iframe src="/frame"></iframe>
				<script>document.getElementById("root").innerHTML = "<h1>Panificadora Renderizada</h1>";</script>
				</body></html>`))
		}
	}))
	t.Cleanup(srv.Close)

	e := engine.NewRodEngine(config.BrowserConfig{
		Headless:        true,
		NoSandbox:       true,
		MaxSessions:     1,
		PageLoadTimeout: 15 * time.Second,
		SettleDelay:     time.Second,
		ScrollSettle:    200 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := e.Fetch(ctx, &engine.FetchRequest{URL: srv.URL, CaptureScreenshots: true})

	require.NoError(t, err)
	assert.Equal(t, engine.ModeRendered, res.Mode)
	assert.Contains(t, res.HTML, "Panificadora Renderizada")
	assert.Contains(t, res.Frames, "Conteúdo do iframe com descrição longa")
	require.NotEmpty(t, res.Screenshots)
	assert.Equal(t, models.ShotFullPage, res.Screenshots[0].Label)
	assert.Equal(t, 0, e.Stats().ActiveSessions)
}
