package ui

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c interface {
	Render(ctx context.Context, w io.Writer) error
}) string {
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestToastNotification_EscapesMessage(t *testing.T) {
	html := render(t, ToastNotification(`<b>Base.xlsx</b> approved`, "success"))

	assert.Contains(t, html, "&lt;b&gt;Base.xlsx&lt;/b&gt; approved")
	assert.Contains(t, html, "bg-green-50")
}

func TestRichToastNotification_FlagsErrors(t *testing.T) {
	html := render(t, RichToastNotification(ToastNotificationView{
		Title:    "Forecast Rollover Complete",
		Type:     "completed",
		Duration: "12s",
		Stats: []ToastStat{
			{Label: "Files archived", Value: 4},
			{Label: "Errors", Value: 1, Alert: true},
		},
	}))

	assert.Contains(t, html, "Files archived: 4")
	assert.Contains(t, html, `<span class="text-red-600">Errors: 1</span>`)
	assert.Contains(t, html, "Took 12s")
}
