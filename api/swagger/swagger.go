// Package swagger registers the OpenAPI document served at /docs in
// development builds.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TPI Manager API",
        "description": "Multi-tenant polytechnic portal: announcements, events, class schedules, chat and Q&A with live updates",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, registration and token lifecycle"},
        {"name": "Records", "description": "Announcements, events and class schedules with derived status"},
        {"name": "Chat", "description": "Departmental and class rooms"},
        {"name": "Ask", "description": "Departmental Q&A board"},
        {"name": "Realtime", "description": "SSE and websocket event feeds"},
        {"name": "Uploads", "description": "Image attachments"},
        {"name": "Exports", "description": "Signed timetable downloads"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by user id and password",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Tokens and user info", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Create an account",
                "responses": {
                    "200": {"description": "status saved or duplicate", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate the refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke the refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Revoked"}}
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change own password",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Changed"}}
            }
        },
        "/announcements": {
            "get": {
                "tags": ["Records"],
                "summary": "List announcements with derived status",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Announcements", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Records"],
                "summary": "Publish an announcement (admin, teacher)",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Students cannot publish"}}
            }
        },
        "/events/{department}/{semester}/{shift}": {
            "get": {
                "tags": ["Records"],
                "summary": "List a class's events",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Events"}}
            }
        },
        "/schedules/{department}/{semester}/{shift}": {
            "get": {
                "tags": ["Records"],
                "summary": "List a class's schedule slots",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Schedule"}}
            }
        },
        "/schedules/{department}/{semester}/{shift}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export a timetable as csv or pdf",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/chat/{department}": {
            "get": {
                "tags": ["Chat"],
                "summary": "Room history (semester and shift as query parameters select a class room)",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Messages"}}
            }
        },
        "/chat": {
            "post": {
                "tags": ["Chat"],
                "summary": "Post a message",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/ask/{department}": {
            "get": {
                "tags": ["Ask"],
                "summary": "List a department's questions",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Questions"}}
            }
        },
        "/stream": {
            "get": {
                "tags": ["Realtime"],
                "summary": "Server-sent events for selected topics",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Event stream"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["Realtime"],
                "summary": "Websocket feed with join/leave control frames",
                "security": [{"BearerAuth": []}],
                "responses": {"101": {"description": "Switching protocols"}}
            }
        },
        "/uploads": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload up to three images",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Stored filenames"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["userId", "password"],
            "properties": {
                "userId": {"type": "string"},
                "password": {"type": "string"}
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
