// Package api holds the OpenAPI description of the HTTP interface.
package api

import _ "embed"

// Schema is the OpenAPI document served at /api/docs/openapi.yaml.
//
//go:embed openapi.yaml
var Schema []byte
