package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// openAPIDoc is the OpenAPI YAML loaded at startup. Empty until SetSwaggerSpec.
var openAPIDoc []byte

// SetSwaggerSpec sets the OpenAPI document served under /swagger/spec.
func SetSwaggerSpec(doc []byte) {
	openAPIDoc = doc
}

// SwaggerSpec serves the raw OpenAPI YAML.
func SwaggerSpec(c *gin.Context) {
	if len(openAPIDoc) == 0 {
		c.String(http.StatusNotFound, "OpenAPI document not loaded")
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", openAPIDoc)
}

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Campus Token Ledger - Internal API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: '/swagger/spec', dom_id: '#swagger-ui' });
  </script>
</body>
</html>`

// SwaggerUI serves a Swagger UI page pointed at /swagger/spec.
func SwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerPage))
}
