package http

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"

	"github.com/medsnear/medsnear/api"
)

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%s | Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.json',
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis],
    });
  </script>
</body>
</html>`

// openAPIJSON parses the embedded document once. The JSON form is what
// Swagger UI and most client generators fetch.
var openAPIJSON = sync.OnceValues(func() ([]byte, error) {
	if len(api.OpenAPI) == 0 {
		return nil, fmt.Errorf("openapi document not embedded")
	}
	doc, err := openapi3.NewLoader().LoadFromData(api.OpenAPI)
	if err != nil {
		return nil, fmt.Errorf("parse openapi: %w", err)
	}
	return json.Marshal(doc)
})

// SetupDocs registers Swagger UI at /docs and the API description at
// /docs/openapi.yaml and /docs/openapi.json.
func SetupDocs(app *fiber.App) {
	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(fmt.Sprintf(swaggerUIPage, "MedsNear API"))
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if len(api.OpenAPI) == 0 {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(api.OpenAPI)
	})

	app.Get("/docs/openapi.json", func(c *fiber.Ctx) error {
		data, err := openAPIJSON()
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("openapi document unavailable", "error", err)
			return errNotFound(c, "openapi.json not available")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})
}
