package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		name   string
		format func(string) string
		icon   string
	}{
		{name: "success", format: FormatSuccess, icon: SuccessIcon},
		{name: "error", format: FormatError, icon: ErrorIcon},
		{name: "warning", format: FormatWarning, icon: WarningIcon},
		{name: "info", format: FormatInfo, icon: InfoIcon},
		{name: "title", format: FormatTitle, icon: CartIcon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.format("exported 3 sections")
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "exported 3 sections")
		})
	}
}

func TestRenderBox(t *testing.T) {
	out := RenderBox("Segments", "Best Customers  12")
	assert.Contains(t, out, "Segments")
	assert.Contains(t, out, "Best Customers  12")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"Segment", "Customers"},
		[][]string{{"Best Customers", "12"}, {"Lost", "3"}},
	)
	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "Segment")
	assert.Contains(t, out, "Best Customers")
	assert.Contains(t, out, "Lost")
}

func TestStageProgress(t *testing.T) {
	var buf bytes.Buffer
	var stages []string
	p := NewStageProgress(&buf, 2, func(s string) { stages = append(stages, s) })

	p.StageStarted("load")
	p.StageDone("load")
	p.StageStarted("clean")
	p.StageDone("clean")

	assert.Equal(t, []string{"load", "clean"}, stages)
	assert.NotEmpty(t, buf.String())
}
