package extractor

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscan/models"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"açúcar", 3, "açú"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n), "Truncate(%q, %d)", tt.in, tt.n)
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "caracteristicas", Fold("Características"))
	assert.Equal(t, "descricao", Fold("DESCRIÇÃO"))
	assert.Equal(t, "o que voce precisa saber", Fold("O que você precisa saber"))
}

func TestFold_ConcurrentCalls(t *testing.T) {
	t.Parallel()

	inputs := map[string]string{
		"Características":          "caracteristicas",
		"DESCRIÇÃO":                "descricao",
		"O que você precisa saber": "o que voce precisa saber",
		"Ficha técnica":            "ficha tecnica",
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				for in, want := range inputs {
					if got := Fold(in); got != want {
						t.Errorf("Fold(%q) = %q, want %q", in, got, want)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestFlatten_BlockBoundaries(t *testing.T) {
	doc, err := Parse(`<div>Cor:<span>Branco</span></div><div>Voltagem</div>`, "", ModePlain)
	require.NoError(t, err)

	lines := doc.Lines()
	assert.Equal(t, []string{"Cor:Branco", "Voltagem"}, lines)
}

func TestTrace_Format(t *testing.T) {
	tr := NewTrace(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })
	tr.Info("fetched %d bytes", 42)
	tr.Warn("low")
	tr.Error("boom")

	assert.Equal(t, []string{
		"2026-01-02T03:04:05Z [INFO] fetched 42 bytes",
		"2026-01-02T03:04:05Z [WARN] low",
		"2026-01-02T03:04:05Z [ERROR] boom",
	}, tr.Lines())
}

func TestCascade_PanickingStrategyIsContained(t *testing.T) {
	doc, err := Parse(`<h1>ok</h1>`, "", ModePlain)
	require.NoError(t, err)
	tr := NewTrace(nil)

	strategies := []strategy[string]{
		{"broken", func(*Document) (string, bool) { panic("malformed markup") }},
		{"empty", func(*Document) (string, bool) { return "", false }},
		{"works", func(*Document) (string, bool) { return "value", true }},
	}

	v, ok := cascade("title", doc, tr, strategies)

	require.True(t, ok)
	assert.Equal(t, "value", v)
	lines := strings.Join(tr.Lines(), "\n")
	assert.Contains(t, lines, "[WARN] title: strategy broken failed: malformed markup")
	assert.Contains(t, lines, models.ErrCodeFieldExtraction)
	assert.Contains(t, lines, "title: matched by works")
}

func TestCascade_NothingFoundKeepsDefault(t *testing.T) {
	doc, err := Parse(`<p></p>`, "", ModePlain)
	require.NoError(t, err)
	tr := NewTrace(nil)

	_, ok := cascade("color", doc, tr, []strategy[string]{
		{"none", func(*Document) (string, bool) { return "", false }},
	})

	assert.False(t, ok)
	assert.Contains(t, tr.Lines()[0], "color: not found")
}
