package router

import (
	"net/http"
	"os"

	apischema "faqdesk/backend/api"
	"faqdesk/backend/pkg/validator"

	"github.com/gin-gonic/gin"
)

const schemaRoute = "/api/docs/openapi.yaml"

// setupOpenAPI validates requests against the schema at schemaPath, or the
// embedded schema when the path is empty, and serves it for clients.
func (r *Router) setupOpenAPI(schemaPath string) {
	schema := apischema.Schema
	var (
		v   *validator.OpenAPIValidator
		err error
	)

	if schemaPath != "" && fileExists(schemaPath) {
		v, err = validator.NewOpenAPIValidator(schemaPath)
		if err == nil {
			schema, err = os.ReadFile(schemaPath)
		}
	} else {
		if schemaPath != "" {
			r.Logger.Warn("OpenAPI schema file not found, using embedded schema", "path", schemaPath)
		}
		v, err = validator.NewOpenAPIValidatorFromData(schema)
	}
	if err != nil {
		r.Logger.Error("Failed to initialize OpenAPI validator", "error", err)
		return
	}

	r.Engine.Use(v.Middleware())
	r.Engine.GET(schemaRoute, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", schema)
	})
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaRoute)
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
