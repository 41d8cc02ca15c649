// Package docs registers the Swagger spec served by gin-swagger.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
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
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user"}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login user"}},
        "/auth/logout": {"post": {"tags": ["auth"], "summary": "Logout"}},
        "/auth/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Current user"}},
        "/config/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "List users"},
            "post": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Create user"}
        },
        "/config/users/{id}": {"patch": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Update user"}},
        "/config/bank-accounts": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "List bank accounts"},
            "post": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Create a bank account"}
        },
        "/config/bank-accounts/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Get a bank account"},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Update a bank account"},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Delete a bank account"}
        },
        "/config/categories": {"post": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Create a category"}},
        "/config/categories/tree": {"get": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Category tree"}},
        "/config/categories/{id}": {
            "patch": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Update a category"},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Delete a category"}
        },
        "/config/categories/{id}/move": {"patch": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Move a category"}},
        "/config/categories/{id}/tags": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "List tags"},
            "post": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Create a tag"}
        },
        "/config/categories/{id}/tags/{tagId}": {"delete": {"security": [{"BearerAuth": []}], "tags": ["config"], "summary": "Delete a tag"}},
        "/ledger/transactions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "List transactions"},
            "post": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Create a transaction"}
        },
        "/ledger/transactions/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Get a transaction"},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Update a transaction"},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Delete a transaction"}
        },
        "/ledger/transactions/{id}/refund": {"post": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Refund an expense"}},
        "/ledger/transfers": {"post": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Create a transfer"}},
        "/stats/year-category": {"get": {"security": [{"BearerAuth": []}], "tags": ["stats"], "summary": "Year by category"}},
        "/stats/month-category": {"get": {"security": [{"BearerAuth": []}], "tags": ["stats"], "summary": "Month by category"}},
        "/stats/monthly-range": {"get": {"security": [{"BearerAuth": []}], "tags": ["stats"], "summary": "Monthly income and expense"}},
        "/stats/yoy-monthly": {"get": {"security": [{"BearerAuth": []}], "tags": ["stats"], "summary": "Year over year by month"}},
        "/admin/transaction-audit-logs": {"get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List audit logs"}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ibooks API",
	Description:      "Personal bookkeeping: bank accounts, category trees, income, expense, transfers, refunds and stats.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
