package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dafibh/tablero/tablero-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

// OpenAPI3Spec represents an OpenAPI 3.0 spec structure
type OpenAPI3Spec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []Server               `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// Server represents an OpenAPI 3.0 server
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// schemaFields are the Swagger 2.0 parameter keys that move under "schema"
var schemaFields = []string{"type", "format", "enum", "default", "minimum", "maximum", "items"}

// rewriteRefs points every $ref at #/components/schemas/ instead of #/definitions/
func rewriteRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			if ref, ok := value.(string); ok && key == "$ref" {
				result[key] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
				continue
			}
			result[key] = rewriteRefs(value)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = rewriteRefs(item)
		}
		return result
	default:
		return data
	}
}

// convertOperation turns one Swagger 2.0 operation into its OpenAPI 3.0 form:
// body parameters become a requestBody, the rest get a schema object
func convertOperation(op map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(op))
	for key, value := range op {
		switch key {
		case "parameters", "consumes", "produces":
		case "responses":
			result[key] = convertResponses(value, op["produces"])
		default:
			result[key] = rewriteRefs(value)
		}
	}

	params, _ := op["parameters"].([]interface{})
	converted := make([]interface{}, 0, len(params))
	for _, p := range params {
		param, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		if param["in"] == "body" {
			result["requestBody"] = map[string]interface{}{
				"required": param["required"] == true,
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": rewriteRefs(param["schema"]),
					},
				},
			}
			continue
		}
		converted = append(converted, convertParameter(param))
	}
	if len(converted) > 0 {
		result["parameters"] = converted
	}
	return result
}

func convertParameter(param map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := param[field]; ok {
			result[field] = val
		}
	}

	schema := make(map[string]interface{})
	for _, field := range schemaFields {
		if val, ok := param[field]; ok {
			schema[field] = rewriteRefs(val)
		}
	}
	if len(schema) > 0 {
		result["schema"] = schema
	}

	// Repeated query keys (?category=a&category=b)
	if param["collectionFormat"] == "multi" {
		result["style"] = "form"
		result["explode"] = true
	}
	return result
}

func convertResponses(responses interface{}, produces interface{}) interface{} {
	mediaType := "application/json"
	if list, ok := produces.([]interface{}); ok && len(list) > 0 {
		if s, ok := list[0].(string); ok {
			mediaType = s
		}
	}

	byStatus, ok := responses.(map[string]interface{})
	if !ok {
		return rewriteRefs(responses)
	}

	result := make(map[string]interface{}, len(byStatus))
	for status, r := range byStatus {
		resp, ok := r.(map[string]interface{})
		if !ok {
			result[status] = r
			continue
		}
		converted := map[string]interface{}{"description": resp["description"]}
		if schema, ok := resp["schema"]; ok {
			converted["content"] = map[string]interface{}{
				mediaType: map[string]interface{}{"schema": rewriteRefs(schema)},
			}
		}
		result[status] = converted
	}
	return result
}

// ServeOpenAPI3Spec serves the swagger spec converted to OpenAPI 3.0
func ServeOpenAPI3Spec(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return NewInternalError(c, "Failed to read swagger doc")
	}

	var swagger2 map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		return NewInternalError(c, "Failed to parse swagger doc")
	}

	info, _ := swagger2["info"].(map[string]interface{})

	paths := make(map[string]interface{})
	rawPaths, _ := swagger2["paths"].(map[string]interface{})
	for path, item := range rawPaths {
		methods, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		converted := make(map[string]interface{}, len(methods))
		for method, op := range methods {
			if opMap, ok := op.(map[string]interface{}); ok {
				converted[method] = convertOperation(opMap)
			}
		}
		paths[path] = converted
	}

	components := make(map[string]interface{})
	if definitions, ok := swagger2["definitions"].(map[string]interface{}); ok {
		components["schemas"] = rewriteRefs(definitions)
	}

	return c.JSON(http.StatusOK, OpenAPI3Spec{
		OpenAPI: "3.0.3",
		Info:    info,
		Servers: []Server{
			{
				URL:         c.Scheme() + "://" + c.Request().Host + "/api/v1",
				Description: "Current host",
			},
			{
				URL:         "http://localhost:8080/api/v1",
				Description: "Local Development",
			},
		},
		Paths:      paths,
		Components: components,
	})
}
