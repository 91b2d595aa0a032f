// Package static embeds the API documentation served by the service.
package static

import _ "embed"

// OpenAPI is the OpenAPI 3 description of the public read surface, served at
// GET /api-doc/openapi.json.
//
//go:embed openapi.json
var OpenAPI []byte

// SwaggerUI is the page served at GET /swagger-ui. It renders OpenAPI with
// swagger-ui loaded from a CDN.
//
//go:embed swagger.html
var SwaggerUI []byte
