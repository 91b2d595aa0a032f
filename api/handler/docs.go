package handler

import (
	"net/http"

	"github.com/ddevcap/blog-metadata/static"
	"github.com/gin-gonic/gin"
)

// OpenAPI handles GET /api-doc/openapi.json.
func OpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", static.OpenAPI)
}

// SwaggerUI handles GET /swagger-ui.
func SwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", static.SwaggerUI)
}
