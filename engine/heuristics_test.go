package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNeedsRendering(t *testing.T) {
	t.Parallel()

	prose := strings.Repeat("Panificadora automática com 12 programas. ", 10)

	tests := []struct {
		name   string
		body   string
		want   bool
		reason string
	}{
		{
			name: "rich page",
			body: "<html><body><p>" + prose + "</p></body></html>",
			want: false,
		},
		{
			name:   "almost empty body",
			body:   "<html><body><p>Carregando...</p></body></html>",
			want:   true,
			reason: "little visible text",
		},
		{
			name:   "empty spa root",
			body:   `<html><body><div id="app"></div><p>` + prose + `</p></body></html>`,
			want:   true,
			reason: "empty application root",
		},
		{
			name:   "noscript notice",
			body:   `<html><body><noscript>Please enable JavaScript</noscript><p>` + prose + `</p></body></html>`,
			want:   true,
			reason: "javascript required notice",
		},
		{
			name: "script text is not visible text",
			body: "<html><body><script>" + prose + "</script></body></html>",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, reason := needsRendering(tt.body)
			assert.Equal(t, tt.want, got)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, reason)
			}
		})
	}
}

func TestDomainMemory_Expires(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	dm := newDomainMemory(time.Hour, func() time.Time { return now })

	dm.Set("shop.test", ModeRendered)
	assert.Equal(t, ModeRendered, dm.Get("shop.test"))

	now = now.Add(61 * time.Minute)
	assert.Empty(t, dm.Get("shop.test"))
}

func TestDomainMemory_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	dm := NewDomainMemory(time.Hour)
	dm.Stop()
	assert.NotPanics(t, dm.Stop)
}

func TestIsAdHost(t *testing.T) {
	t.Parallel()

	assert.True(t, isAdHost("doubleclick.net"))
	assert.True(t, isAdHost("stats.g.DoubleClick.net"))
	assert.False(t, isAdHost("http2.mlstatic.com"))
	assert.False(t, isAdHost("net"))
}

func TestSiteRoot(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.mercadolivre.com.br/", siteRoot("https://www.mercadolivre.com.br/p/MLB1?x=1"))
	assert.Empty(t, siteRoot("not a url"))
}
