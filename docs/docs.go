// Package docs holds the OpenAPI document served at /swagger. It is
// maintained by hand alongside the handler annotations; keep every route
// registered in transport/http/gin listed here.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/health": {
            "get": {"tags": ["system"], "summary": "Health check", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.HealthResponse"}}}}
        },
        "/api/auth/register": {
            "post": {"tags": ["auth"], "summary": "Register", "parameters": [{"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.RegisterRequest"}}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}, "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/auth/login": {
            "post": {"tags": ["auth"], "summary": "Login", "parameters": [{"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.LoginRequest"}}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/auth/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Current user", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/tickets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["tickets"], "summary": "List tickets", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}},
            "post": {"tags": ["tickets"], "summary": "Book a ticket (idempotent)", "parameters": [{"type": "string", "description": "client generated key", "name": "Idempotency-Key", "in": "header"}, {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.CreateTicketRequest"}}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}, "409": {"description": "idempotency key in progress", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}, "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/tickets/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["tickets"], "summary": "Get ticket", "parameters": [{"type": "string", "description": "Ticket ID (uuid)", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/tickets/{id}/cancellation": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["tickets"], "summary": "Preview a cancellation", "parameters": [{"type": "string", "description": "Ticket ID (uuid)", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "already cancelled / too late", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/tickets/{id}/cancel": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["tickets"], "summary": "Cancel ticket", "description": "7 or more days before the visit refunds 100%, 2 to 6 days 50%, under 2 days is rejected.", "parameters": [{"type": "string", "description": "Ticket ID (uuid)", "name": "id", "in": "path", "required": true}, {"description": "optional reason", "name": "req", "in": "body", "schema": {"$ref": "#/definitions/httpgin.CancelTicketRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "already cancelled / too late", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/chat": {
            "post": {"tags": ["chat"], "summary": "Chat with the museum assistant", "parameters": [{"description": "message and optional session id", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.ChatRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/admin/dashboard/stats": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Dashboard statistics", "parameters": [{"type": "string", "description": "revenue (default) or count", "name": "top_by", "in": "query"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/admin/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List users with ticket totals", "responses": {"200": {"description": "OK"}}}
        },
        "/api/admin/users/{id}/tickets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Tickets of one user", "parameters": [{"type": "string", "description": "User ID (uuid)", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/admin/users/{id}/role": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Change a user's role", "parameters": [{"type": "string", "description": "User ID (uuid)", "name": "id", "in": "path", "required": true}, {"description": "user or admin", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.UpdateRoleRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/api/admin/users/{id}": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Delete a user and their tickets", "parameters": [{"type": "string", "description": "User ID (uuid)", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "cannot delete self", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        }
    },
    "definitions": {
        "httpgin.ErrorResponse": {"type": "object", "properties": {"success": {"type": "boolean"}, "error": {"type": "string"}, "message": {"type": "string"}}},
        "httpgin.HealthResponse": {"type": "object", "properties": {"status": {"type": "string"}, "timestamp": {"type": "string"}, "database": {"type": "string"}}},
        "httpgin.RegisterRequest": {"type": "object", "required": ["email", "name", "password"], "properties": {"name": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string"}}},
        "httpgin.LoginRequest": {"type": "object", "required": ["email", "password"], "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "httpgin.CreateTicketRequest": {"type": "object", "required": ["visit_date"], "properties": {"name": {"type": "string"}, "email": {"type": "string"}, "ticket_type": {"type": "string"}, "exhibition": {"type": "string"}, "visit_date": {"type": "string"}, "visitors": {"type": "integer"}, "category": {"type": "string"}, "payment_status": {"type": "string"}}},
        "httpgin.CancelTicketRequest": {"type": "object", "properties": {"reason": {"type": "string"}}},
        "httpgin.UpdateRoleRequest": {"type": "object", "required": ["role"], "properties": {"role": {"type": "string"}}},
        "httpgin.ChatRequest": {"type": "object", "properties": {"session_id": {"type": "string"}, "message": {"type": "string"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Museum Tickets API",
	Description:      "Ticket booking, cancellation with refunds and administration for a museum.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
