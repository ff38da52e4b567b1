package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Canvas Assignment Manager",
        "description": "Canvas relay and assignment triage servers",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Relay", "description": "Credential-forwarding Canvas proxy"},
        {"name": "State", "description": "Store configuration and flags"},
        {"name": "Assignments", "description": "Classified assignments, selection and visibility"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/HealthStatus"}}
                }
            }
        },
        "/api/canvas/{path}": {
            "get": {
                "tags": ["Relay"],
                "summary": "Forward a request to <X-Canvas-Url>/api/v1/{path}",
                "parameters": [
                    {"name": "path", "in": "path", "required": true, "type": "string"},
                    {"name": "X-Canvas-Url", "in": "header", "required": true, "type": "string"},
                    {"name": "X-Api-Key", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Upstream body"},
                    "400": {"description": "Missing headers", "schema": {"$ref": "#/definitions/RelayError"}},
                    "500": {"description": "Transport failure", "schema": {"$ref": "#/definitions/RelayError"}}
                }
            }
        },
        "/api/state": {
            "get": {
                "tags": ["State"],
                "summary": "Store snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["State"],
                "summary": "Reset the store and erase persisted data",
                "responses": {
                    "204": {"description": "Cleared"}
                }
            }
        },
        "/api/config": {
            "put": {
                "tags": ["State"],
                "summary": "Save Canvas credentials",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateConfigRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Canvas rejected the credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Canvas unreachable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/settings/show-hidden": {
            "put": {
                "tags": ["State"],
                "summary": "Show or hide hidden assignments",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ShowHiddenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignments",
                "parameters": [
                    {"name": "view", "in": "query", "type": "string", "enum": ["visible", "hidden", "selected", "all"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Assignments"],
                "summary": "Replace the collection",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/assignments/refresh": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Fetch assignments from Canvas",
                "responses": {
                    "200": {"description": "Refreshed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Refresh already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/assignments/demo": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Load sample assignments without Canvas credentials",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/assignments/{id}/toggle-selection": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Toggle selection",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/assignments/{id}/toggle-visibility": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Toggle hidden flag",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/assignments/select-all": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Select all visible assignments",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/assignments/deselect-all": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Clear every selection",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/assignments/export": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Download selected assignments",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {
                    "200": {"description": "File"},
                    "400": {"description": "Nothing selected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/jobs/{id}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Background refresh status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "HealthStatus": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "RelayError": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "UpdateConfigRequest": {
            "type": "object",
            "properties": {
                "baseUrl": {"type": "string"},
                "apiKey": {"type": "string"}
            }
        },
        "ShowHiddenRequest": {
            "type": "object",
            "required": ["show"],
            "properties": {
                "show": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
