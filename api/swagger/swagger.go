package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Grid Mediation API",
        "description": "Grid-based judicial mediation case management backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and session management"},
        {"name": "Tasks", "description": "Mediation task lifecycle"},
        {"name": "Grids", "description": "Grid boundaries, managers and mediator rosters"},
        {"name": "Statistics", "description": "Aggregate dashboards and monthly reports"}
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
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/tasks": {
            "get": {
                "tags": ["Tasks"],
                "summary": "List tasks in the caller's scope",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "typeId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Tasks"],
                "summary": "Report a task",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTaskRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tasks/{id}": {
            "get": {
                "tags": ["Tasks"],
                "summary": "Get task with resolved attachments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Outside the caller's scope"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/tasks/{id}/assign": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Assign task to a mediator",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Task is not in the reported state"}
                }
            }
        },
        "/tasks/{id}/process": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Record mediation progress",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProcessTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Task is not in the assigned state"}
                }
            }
        },
        "/tasks/{id}/complete": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Record mediation outcome",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Task is not in the processing state"}
                }
            }
        },
        "/grids": {
            "get": {
                "tags": ["Grids"],
                "summary": "List grids",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grids/map": {
            "get": {
                "tags": ["Grids"],
                "summary": "Active grids shaped for map rendering",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statistics/overview": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Task statistics overview",
                "parameters": [
                    {"name": "gridId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Requires a manager role"}
                }
            }
        },
        "/statistics/monthly": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Monthly mediation report",
                "parameters": [
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "gridId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "CreateTaskRequest": {
            "type": "object",
            "properties": {
                "task_type_id": {"type": "string"},
                "party_name": {"type": "string"},
                "party_phone": {"type": "string"},
                "party_address": {"type": "string"},
                "description": {"type": "string"},
                "amount": {"type": "number"},
                "report_lng": {"type": "number"},
                "report_lat": {"type": "number"},
                "report_address": {"type": "string"},
                "report_image_ids": {"type": "array", "items": {"type": "string"}},
                "report_file_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["task_type_id", "party_name", "description"]
        },
        "AssignTaskRequest": {
            "type": "object",
            "properties": {
                "mediator_id": {"type": "string"}
            },
            "required": ["mediator_id"]
        },
        "ProcessTaskRequest": {
            "type": "object",
            "properties": {
                "handle_method": {"type": "string", "enum": ["ONSITE", "ONLINE"]},
                "participants": {"type": "string"},
                "expected_plan": {"type": "string"}
            },
            "required": ["handle_method"]
        },
        "CompleteTaskRequest": {
            "type": "object",
            "properties": {
                "result": {"type": "string", "enum": ["SUCCESS", "FAILURE", "PARTIAL"]},
                "result_detail": {"type": "string"},
                "process_description": {"type": "string"},
                "complete_lng": {"type": "number"},
                "complete_lat": {"type": "number"},
                "complete_address": {"type": "string"},
                "complete_image_ids": {"type": "array", "items": {"type": "string"}},
                "complete_file_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["result"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
