package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

func toastClasses(toastType string) (string, string) {
	switch toastType {
	case "success", "completed":
		return "border-green-300 bg-green-50 text-green-800", "✅"
	case "warning", "cancelled":
		return "border-orange-300 bg-orange-50 text-orange-800", "⚠️"
	case "error", "failed":
		return "border-red-300 bg-red-50 text-red-800", "❌"
	default:
		return "border-blue-300 bg-blue-50 text-blue-800", "ℹ️"
	}
}

// ToastNotification renders a single-line toast.
func ToastNotification(message, toastType string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		classes, icon := toastClasses(toastType)
		_, err := fmt.Fprintf(w,
			`<div class="toast border rounded px-4 py-3 shadow %s" role="status" data-toast-type="%s"><span class="mr-2">%s</span>%s</div>`,
			classes, templ.EscapeString(toastType), icon, templ.EscapeString(message))
		return err
	})
}

// RichToastNotification renders a job toast with its counters.
func RichToastNotification(view ToastNotificationView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		classes, icon := toastClasses(view.Type)
		var b strings.Builder
		fmt.Fprintf(&b, `<div class="toast border rounded px-4 py-3 shadow %s" role="status" data-toast-type="%s" data-job-type="%s">`,
			classes, templ.EscapeString(view.Type), templ.EscapeString(view.JobType))
		fmt.Fprintf(&b, `<div class="font-medium"><span class="mr-2">%s</span>%s</div>`, icon, templ.EscapeString(view.Title))
		fmt.Fprintf(&b, `<div class="text-sm">%s</div>`, templ.EscapeString(view.Message))
		if len(view.Stats) > 0 {
			b.WriteString(`<div class="mt-1 text-xs">`)
			for i, s := range view.Stats {
				if i > 0 {
					b.WriteString(" • ")
				}
				if s.Alert {
					fmt.Fprintf(&b, `<span class="text-red-600">%s: %d</span>`, templ.EscapeString(s.Label), s.Value)
				} else {
					fmt.Fprintf(&b, `%s: %d`, templ.EscapeString(s.Label), s.Value)
				}
			}
			b.WriteString(`</div>`)
		}
		if view.Duration != "" {
			fmt.Fprintf(&b, `<div class="mt-1 text-xs text-slate-500">Took %s</div>`, templ.EscapeString(view.Duration))
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
