// Package view renders the console's HTML pages.
package view

import (
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/web"
)

const displayDate = "02/01/2006"

// Engine renders HTML templates. It satisfies echo.Renderer.
type Engine struct {
	templates *template.Template
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(d *domain.Date) string {
			if d == nil || d.IsZero() {
				return ""
			}
			return d.Format(displayDate)
		},
		"inputDate": func(d *domain.Date) string {
			if d == nil {
				return ""
			}
			return d.String()
		},
		"formatTime": func(ts *domain.Timestamp) string {
			if ts == nil || ts.IsZero() {
				return ""
			}
			return ts.Local().Format("02/01/2006 15:04")
		},
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
		"pages": pageNumbers,
		"rowOffset": func(page, size int) int {
			if page < 1 {
				return 0
			}
			return (page - 1) * size
		},
		"kb": func(n int64) string {
			return fmt.Sprintf("%.1f KB", float64(n)/1024)
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates,
		"templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Engine{templates: tpl}, nil
}

// Render executes the named template.
func (e *Engine) Render(w io.Writer, name string, data any, _ echo.Context) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}

// pageNumbers lists 1..total.
func pageNumbers(total int) []int {
	out := make([]int, 0, total)
	for i := 1; i <= total; i++ {
		out = append(out, i)
	}
	return out
}
