// Package auth holds the OpenAPI description served at /swagger/.
package auth

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/liftlog"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/send-otp": {
            "post": {
                "description": "Issues a 6-digit code for the identity, replacing any earlier one, and reports whether the identity still has to register.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "OTP"
                ],
                "summary": "Send a one-time code",
                "parameters": [
                    {
                        "description": "identity",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/authsdk.SendOTPRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "isNewUser",
                        "schema": {
                            "$ref": "#/definitions/authsdk.SendOTPResponse"
                        }
                    },
                    "400": {
                        "description": "validation_error",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "429": {
                        "description": "rate_limit_exceeded",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "500": {
                        "description": "server_error",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    }
                }
            }
        },
        "/auth/verify-otp": {
            "post": {
                "description": "Consumes the code. A known identity receives an access token and the refresh_token cookie; a new identity receives a name prompt.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "OTP"
                ],
                "summary": "Verify a one-time code",
                "parameters": [
                    {
                        "description": "identity, code",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/authsdk.VerifyOTPRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "accessToken, or message: enter name",
                        "schema": {
                            "$ref": "#/definitions/authsdk.VerifyOTPResponse"
                        },
                        "headers": {
                            "Set-Cookie": {
                                "type": "string",
                                "description": "refresh_token (existing principals only)"
                            }
                        }
                    },
                    "400": {
                        "description": "validation_error, challenge_not_found, challenge_expired, challenge_mismatch",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "429": {
                        "description": "rate_limit_exceeded",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "500": {
                        "description": "server_error",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    }
                }
            }
        },
        "/auth/complete-registration": {
            "post": {
                "description": "Creates the principal for an identity that has just verified a code and starts its session.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "OTP"
                ],
                "summary": "Complete registration",
                "parameters": [
                    {
                        "description": "identity, name",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/authsdk.CompleteRegistrationRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "accessToken",
                        "schema": {
                            "$ref": "#/definitions/authsdk.TokenResponse"
                        },
                        "headers": {
                            "Set-Cookie": {
                                "type": "string",
                                "description": "refresh_token"
                            }
                        }
                    },
                    "400": {
                        "description": "validation_error, already_registered, challenge_not_found",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "429": {
                        "description": "rate_limit_exceeded",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "500": {
                        "description": "server_error",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    }
                }
            }
        },
        "/signed-payload-auth": {
            "post": {
                "description": "Verifies a payload signed by the third-party login widget (HMAC-SHA256 over the sorted key=value lines, keyed with SHA-256 of the provider token). The principal is created on first login.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Signed Payload"
                ],
                "summary": "Log in with a signed payload",
                "parameters": [
                    {
                        "description": "widget fields including hash",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "accessToken",
                        "schema": {
                            "$ref": "#/definitions/authsdk.TokenResponse"
                        },
                        "headers": {
                            "Set-Cookie": {
                                "type": "string",
                                "description": "refresh_token"
                            }
                        }
                    },
                    "400": {
                        "description": "malformed_payload",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "401": {
                        "description": "invalid_signature",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "429": {
                        "description": "rate_limit_exceeded",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "500": {
                        "description": "server_error",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    }
                }
            }
        },
        "/refresh-token": {
            "post": {
                "description": "Exchanges the refresh_token cookie for a new access token and rotates the cookie. The token is read from the cookie only; bodies and headers are ignored.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Session"
                ],
                "summary": "Refresh the session",
                "responses": {
                    "200": {
                        "description": "accessToken",
                        "schema": {
                            "$ref": "#/definitions/authsdk.TokenResponse"
                        },
                        "headers": {
                            "Set-Cookie": {
                                "type": "string",
                                "description": "refresh_token"
                            }
                        }
                    },
                    "401": {
                        "description": "token_missing",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "403": {
                        "description": "token_invalid, token_expired",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "404": {
                        "description": "not_found",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "429": {
                        "description": "rate_limit_exceeded",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    }
                }
            }
        },
        "/logout": {
            "post": {
                "description": "Clears the refresh_token cookie. Tokens already issued stay valid until they expire.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Session"
                ],
                "summary": "Log out",
                "responses": {
                    "200": {
                        "description": "message",
                        "schema": {
                            "$ref": "#/definitions/authsdk.LogoutResponse"
                        },
                        "headers": {
                            "Set-Cookie": {
                                "type": "string",
                                "description": "refresh_token with Max-Age=0"
                            }
                        }
                    }
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Session"
                ],
                "summary": "Get the authenticated principal",
                "responses": {
                    "200": {
                        "description": "subjectId, identity, name",
                        "schema": {
                            "$ref": "#/definitions/authsdk.MeResponse"
                        }
                    },
                    "401": {
                        "description": "token_missing",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "403": {
                        "description": "token_invalid, token_expired",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    },
                    "404": {
                        "description": "not_found",
                        "schema": {
                            "$ref": "#/definitions/authsdk.APIError"
                        }
                    }
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Liveness probe endpoint returning basic service health status, uptime, and version information\nThis endpoint always returns 200 OK if the service is running",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Health"
                ],
                "summary": "Health Check Endpoint",
                "responses": {
                    "200": {
                        "description": "status, uptime, version",
                        "schema": {
                            "$ref": "#/definitions/authsdk.HealthResponse"
                        }
                    }
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Readiness probe endpoint returning service health status and checks for critical dependencies",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Health"
                ],
                "summary": "Readiness Check Endpoint",
                "responses": {
                    "200": {
                        "description": "status, uptime, version, checks",
                        "schema": {
                            "$ref": "#/definitions/authsdk.HealthResponse"
                        }
                    },
                    "503": {
                        "description": "status, uptime, version, checks - service not ready",
                        "schema": {
                            "$ref": "#/definitions/authsdk.HealthResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "authsdk.APIError": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                },
                "error_description": {
                    "type": "string"
                },
                "details": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "authsdk.SendOTPRequest": {
            "type": "object",
            "properties": {
                "identity": {
                    "type": "string"
                }
            }
        },
        "authsdk.SendOTPResponse": {
            "type": "object",
            "properties": {
                "isNewUser": {
                    "type": "boolean"
                }
            }
        },
        "authsdk.VerifyOTPRequest": {
            "type": "object",
            "properties": {
                "identity": {
                    "type": "string"
                },
                "code": {
                    "type": "string"
                }
            }
        },
        "authsdk.VerifyOTPResponse": {
            "type": "object",
            "properties": {
                "accessToken": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "authsdk.CompleteRegistrationRequest": {
            "type": "object",
            "properties": {
                "identity": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                }
            }
        },
        "authsdk.TokenResponse": {
            "type": "object",
            "properties": {
                "accessToken": {
                    "type": "string"
                }
            }
        },
        "authsdk.LogoutResponse": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string"
                }
            }
        },
        "authsdk.MeResponse": {
            "type": "object",
            "properties": {
                "subjectId": {
                    "type": "string"
                },
                "identity": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                }
            }
        },
        "authsdk.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {
                    "type": "string"
                },
                "challenge_store": {
                    "type": "string"
                }
            }
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "uptime": {
                    "type": "string"
                },
                "version": {
                    "type": "string"
                },
                "checks": {
                    "$ref": "#/definitions/authsdk.HealthChecks"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "LiftLog Authentication Service API",
	Description:      "Passwordless and signed-payload login for LiftLog with a dual-token session.\n\nAccess tokens are short-lived HS256 JWTs sent as bearer tokens. Refresh tokens live only in the HttpOnly refresh_token cookie.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
