// Package docs holds the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/tasks": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "List tasks",
                "description": "Filter by status, category and search text",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ListResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "filter",
                        "type": "string",
                        "enum": [
                            "all",
                            "completed",
                            "pending",
                            "high"
                        ]
                    },
                    {
                        "in": "query",
                        "name": "category",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "search",
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Create task",
                "description": "Prepends a new task",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "description": "Task fields",
                        "schema": {
                            "$ref": "#/definitions/TaskInput"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/stats": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Task statistics",
                "description": "Totals, completion rate and overdue count",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Stats"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/export": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Export snapshot",
                "description": "Downloads the whole list as JSON",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/import": {
            "post": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Import snapshot",
                "description": "Replaces the list with a JSON array, sent raw or as multipart field file",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "413": {
                        "description": "Snapshot too large"
                    }
                },
                "consumes": [
                    "application/json",
                    "multipart/form-data"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/report": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Render report",
                "description": "Renders the filtered list",
                "produces": [
                    "text/csv",
                    "application/pdf",
                    "application/json",
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Invalid input"
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "format",
                        "type": "string",
                        "enum": [
                            "csv",
                            "xlsx",
                            "pdf",
                            "json"
                        ]
                    },
                    {
                        "in": "query",
                        "name": "filter",
                        "type": "string",
                        "enum": [
                            "all",
                            "completed",
                            "pending",
                            "high"
                        ]
                    },
                    {
                        "in": "query",
                        "name": "category",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "search",
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/{id}": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Get task",
                "description": "Single task",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Task"
                        }
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer",
                        "format": "int64",
                        "description": "Task ID"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Update task",
                "description": "Edits text, priority, category and due date",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer",
                        "format": "int64",
                        "description": "Task ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "description": "Task fields",
                        "schema": {
                            "$ref": "#/definitions/TaskInput"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Delete task",
                "description": "Removes a task",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    },
                    "200": {
                        "description": "Deleted with persistence warning"
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer",
                        "format": "int64",
                        "description": "Task ID"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/{id}/toggle": {
            "post": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Toggle completion",
                "description": "Flips the completed flag",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Envelope"
                        }
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer",
                        "format": "int64",
                        "description": "Task ID"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/{id}/move": {
            "post": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Move task",
                "description": "Places the task before before_id, or last when absent",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "Moved"
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer",
                        "format": "int64",
                        "description": "Task ID"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "description": "Target position",
                        "schema": {
                            "$ref": "#/definitions/MoveRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/theme": {
            "get": {
                "tags": [
                    "Theme"
                ],
                "summary": "Get theme",
                "description": "Active theme",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "tags": [
                    "Theme"
                ],
                "summary": "Set theme",
                "description": "dark or light",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Invalid input"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "description": "Theme",
                        "schema": {
                            "$ref": "#/definitions/ThemeRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/theme/toggle": {
            "post": {
                "tags": [
                    "Theme"
                ],
                "summary": "Toggle theme",
                "description": "Switches between dark and light",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/auth/token": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Issue token",
                "description": "Exchanges the owner password for a JWT",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "404": {
                        "description": "Authentication disabled"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "description": "Credentials",
                        "schema": {
                            "$ref": "#/definitions/TokenRequest"
                        }
                    }
                ]
            }
        }
    },
    "definitions": {
        "Task": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer",
                    "format": "int64"
                },
                "text": {
                    "type": "string"
                },
                "completed": {
                    "type": "boolean"
                },
                "priority": {
                    "type": "string",
                    "enum": [
                        "low",
                        "medium",
                        "high"
                    ]
                },
                "category": {
                    "type": "string"
                },
                "dueDate": {
                    "type": "string",
                    "format": "date",
                    "x-nullable": true
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "completedAt": {
                    "type": "string",
                    "format": "date-time",
                    "x-nullable": true
                }
            }
        },
        "TaskInput": {
            "type": "object",
            "required": [
                "text"
            ],
            "properties": {
                "text": {
                    "type": "string",
                    "example": "Write the quarterly report"
                },
                "priority": {
                    "type": "string",
                    "enum": [
                        "low",
                        "medium",
                        "high"
                    ]
                },
                "category": {
                    "type": "string",
                    "example": "work"
                },
                "dueDate": {
                    "type": "string",
                    "format": "date",
                    "example": "2026-01-31"
                }
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "data": {
                    "$ref": "#/definitions/Task"
                },
                "warning": {
                    "type": "string"
                }
            }
        },
        "ListResponse": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Task"
                    }
                },
                "total": {
                    "type": "integer"
                }
            }
        },
        "Stats": {
            "type": "object",
            "properties": {
                "total": {
                    "type": "integer"
                },
                "completed": {
                    "type": "integer"
                },
                "pending": {
                    "type": "integer"
                },
                "completionRate": {
                    "type": "integer"
                },
                "overdue": {
                    "type": "integer"
                }
            }
        },
        "MoveRequest": {
            "type": "object",
            "properties": {
                "before_id": {
                    "type": "integer",
                    "format": "int64",
                    "x-nullable": true
                }
            }
        },
        "ThemeRequest": {
            "type": "object",
            "required": [
                "theme"
            ],
            "properties": {
                "theme": {
                    "type": "string",
                    "enum": [
                        "dark",
                        "light"
                    ]
                }
            }
        },
        "TokenRequest": {
            "type": "object",
            "required": [
                "password"
            ],
            "properties": {
                "password": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "FutureTasks API",
	Description:      "Single-user task list with filtering, reordering, snapshots and reports",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
