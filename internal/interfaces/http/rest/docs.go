package rest

import (
	"net/http"

	"github.com/swaggo/swag"
)

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/api/graph": {"get": {"tags": ["graph"], "summary": "Current graph", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/api/points": {"get": {"tags": ["points"], "summary": "List detection points", "parameters": [
            {"name": "q", "in": "query", "type": "string"},
            {"name": "minLat", "in": "query", "type": "number"},
            {"name": "maxLat", "in": "query", "type": "number"},
            {"name": "minLng", "in": "query", "type": "number"},
            {"name": "maxLng", "in": "query", "type": "number"},
            {"name": "limit", "in": "query", "type": "integer"}
        ], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/points/{pointID}": {"get": {"tags": ["points"], "summary": "Get a detection point", "parameters": [
            {"name": "pointID", "in": "path", "required": true, "type": "string"}
        ], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/edges": {"get": {"tags": ["graph"], "summary": "List derived edges", "responses": {"200": {"description": "OK"}}}},
        "/api/bounds": {"get": {"tags": ["graph"], "summary": "Map view fitting the graph", "responses": {"200": {"description": "OK"}}}},
        "/api/snapshot": {
            "get": {"tags": ["snapshot"], "summary": "Snapshot metadata", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "post": {"tags": ["snapshot"], "summary": "Refresh the snapshot", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}},
            "delete": {"tags": ["snapshot"], "summary": "Clear the snapshot", "responses": {"204": {"description": "No Content"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GridGuardian Graph API",
	Description:      "Live detection point graph with derived edges.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

func serveDoc(w http.ResponseWriter, _ *http.Request) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}
