package router

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
)

// DocsRouter serves Swagger UI for the OpenAPI document at FilePath under
// /docs/api/v1.
type DocsRouter struct {
	FilePath string
}

func (d DocsRouter) InstallRouter(app *fiber.App) {
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: d.FilePath,
		Path:     "v1",
		Title:    "GridFox API",
	}))
}

// LoadAPISpec parses and validates the OpenAPI document so a broken file
// fails at boot instead of in the browser.
func LoadAPISpec(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}
