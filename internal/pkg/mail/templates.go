package mail

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates renders the HTML email bodies.
type Templates struct {
	engine *html.Engine
}

func LoadTemplates() (*Templates, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	return &Templates{engine: engine}, nil
}

func (t *Templates) Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.engine.Render(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
