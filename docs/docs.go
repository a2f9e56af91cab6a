// Package docs provides the generated Swagger specification.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new account holder",
                "description": "Register a new account holder and open their default checking account"
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login account holder"
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["auth"],
                "summary": "Logout and blacklist the presented token"
            }
        },
        "/accounts": {
            "get": {
                "tags": ["accounts"],
                "summary": "List the authenticated holder's accounts"
            },
            "post": {
                "tags": ["accounts"],
                "summary": "Open a new checking or savings account"
            }
        },
        "/accounts/{accountId}/balance": {
            "get": {
                "tags": ["accounts"],
                "summary": "Get the cached balance alongside the balance recomputed from history"
            }
        },
        "/accounts/{accountId}/transactions": {
            "get": {
                "tags": ["transactions"],
                "summary": "List transactions on an account"
            },
            "post": {
                "tags": ["transactions"],
                "summary": "Record a credit or debit; uncovered debits persist as declined and answer 422"
            }
        },
        "/accounts/{accountId}/transfers": {
            "post": {
                "tags": ["transactions"],
                "summary": "Atomically transfer funds between two accounts as paired legs"
            }
        },
        "/accounts/{accountId}/card": {
            "get": {
                "tags": ["cards"],
                "summary": "Get the account's masked card"
            },
            "post": {
                "tags": ["cards"],
                "summary": "Issue the account's debit card"
            }
        },
        "/accounts/{accountId}/statements/{year}/{month}": {
            "get": {
                "tags": ["statements"],
                "summary": "Generate a monthly statement"
            }
        },
        "/accounts/{accountId}/receive-code": {
            "post": {
                "tags": ["QR"],
                "summary": "Generate a short-lived receive-money QR code"
            }
        },
        "/receive-code/resolve": {
            "post": {
                "tags": ["QR"],
                "summary": "Resolve a scanned receive code"
            }
        },
        "/accounts/{accountId}/transfers/{transferPairId}/iso20022": {
            "get": {
                "tags": ["iso20022"],
                "summary": "Export a transfer pair as a pacs.008 message"
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Meridian Ledger API",
	Description:      "Double-entry ledger core with accounts, transactions, transfers, cards and statements",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
