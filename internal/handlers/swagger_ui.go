package handlers

import (
	"html/template"
	"net/http"
)

const swaggerUIVersion = "5.10.0"

type swaggerPage struct {
	Title   string
	SpecURL string
	Version string
}

var swaggerTemplate = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui.css">
  <style>body { margin: 0; }</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: "{{.SpecURL}}",
      dom_id: "#swagger-ui",
      docExpansion: "list",
      defaultModelsExpandDepth: 0,
      tryItOutEnabled: true
    });
  </script>
</body>
</html>`))

// SwaggerUI serves the Swagger UI page for /api/docs/openapi.json
func SwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	swaggerTemplate.Execute(w, swaggerPage{
		Title:   "Flight Statistics API Documentation",
		SpecURL: "/api/docs/openapi.json",
		Version: swaggerUIVersion,
	})
}
