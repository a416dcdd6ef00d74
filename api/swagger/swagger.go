package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Uni Timetable API",
        "description": "Cached weekly class timetable with intake, room and free-room queries",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Intake timetable queries and cache control"},
        {"name": "Rooms", "description": "Room schedules and availability"},
        {"name": "Exports", "description": "Weekly timetable exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/api/v1/timetable/generation": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Generation currently serving queries",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "No generation and the feed is unavailable"}
                }
            }
        },
        "/api/v1/timetable/refresh": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Force a feed refresh cycle",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Feed unavailable or invalid"}
                }
            }
        },
        "/api/v1/timetable/intakes/{intake}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Intake timetable for the current week",
                "parameters": [
                    {"name": "intake", "in": "path", "type": "string", "required": true},
                    {"name": "from", "in": "query", "type": "string", "description": "RFC3339 or YYYY-MM-DD"},
                    {"name": "to", "in": "query", "type": "string", "description": "RFC3339 or YYYY-MM-DD"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid window"}
                }
            }
        },
        "/api/v1/timetable/intakes/{intake}/days/{day}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Intake timetable for one business day",
                "parameters": [
                    {"name": "intake", "in": "path", "type": "string", "required": true},
                    {"name": "day", "in": "path", "type": "string", "required": true, "description": "monday through friday"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown day"}
                }
            }
        },
        "/api/v1/timetable/rooms/{room}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Classes held in a room",
                "parameters": [
                    {"name": "room", "in": "path", "type": "string", "required": true, "description": "Room in any accepted spelling"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/rooms/empty": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Physical rooms free during a window",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "description": "Defaults to now"},
                    {"name": "to", "in": "query", "type": "string", "description": "Defaults to one hour after start"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/rooms/describe": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Canonical form of a room string",
                "parameters": [
                    {"name": "room", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/intakes/{intake}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Render the intake's current week as CSV or PDF",
                "parameters": [
                    {"name": "intake", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered export by its signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "400": {"description": "Invalid or expired token"},
                    "404": {"description": "Export no longer available"}
                }
            }
        }
    },
    "definitions": {
        "ClassItem": {
            "type": "object",
            "properties": {
                "intake_code": {"type": "string"},
                "module_code": {"type": "string"},
                "module_name": {"type": "string"},
                "room": {"type": "string"},
                "physical": {"type": "boolean"},
                "grouping": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "day": {"type": "string"}
            }
        },
        "GenerationInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fetched_at": {"type": "string", "format": "date-time"},
                "valid_until": {"type": "string", "format": "date-time"},
                "records": {"type": "integer"}
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
