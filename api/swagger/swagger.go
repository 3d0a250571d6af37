package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA E-Vote API",
        "description": "Ballot casting engine for student council elections",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Voter authentication"},
        {"name": "Elections", "description": "Ballot paper & voting status"},
        {"name": "Draft", "description": "In-progress ballot drafts"},
        {"name": "Ballot", "description": "Authoritative ballot commit"},
        {"name": "Results", "description": "Read-only tallies"}
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a voter",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VoterLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections": {
            "get": {
                "tags": ["Elections"],
                "summary": "List elections open for voting",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections/{id}/ballot": {
            "get": {
                "tags": ["Elections"],
                "summary": "Get the ballot paper",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Ballot"],
                "summary": "Cast the voter's ballot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "X-CSRF-Token", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CommitBallotRequest"}}
                ],
                "responses": {
                    "200": {"description": "Ballot committed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already voted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Election not open, voter not eligible, or invalid selection", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections/{id}/status": {
            "get": {
                "tags": ["Elections"],
                "summary": "Effective voting status for the authenticated voter",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections/{id}/positions/{positionId}/constraints": {
            "get": {
                "tags": ["Elections"],
                "summary": "Capacity constraints for one position",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "positionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Position not on this ballot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections/{id}/draft": {
            "get": {
                "tags": ["Draft"],
                "summary": "Recover the in-progress draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections/{id}/draft/selections": {
            "post": {
                "tags": ["Draft"],
                "summary": "Add a selection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Capacity exceeded or invalid selection", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Draft"],
                "summary": "Remove a selection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections/{id}/draft/page": {
            "put": {
                "tags": ["Draft"],
                "summary": "Remember the current ballot page",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections/{id}/results": {
            "get": {
                "tags": ["Results"],
                "summary": "Per-position results",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Results not available yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/elections/{id}/positions/{positionId}/tally": {
            "get": {
                "tags": ["Results"],
                "summary": "Vote counts for one position",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "positionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "VoterLoginRequest": {
            "type": "object",
            "properties": {
                "voter_number": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["voter_number", "password"]
        },
        "CommitBallotRequest": {
            "type": "object",
            "properties": {
                "votes": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "array",
                        "items": {"type": "string"}
                    }
                }
            },
            "required": ["votes"]
        },
        "SelectionRequest": {
            "type": "object",
            "properties": {
                "position_id": {"type": "string"},
                "candidate_id": {"type": "string"}
            },
            "required": ["position_id", "candidate_id"]
        },
        "PageRequest": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"}
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
                "pagination": {"type": "object"},
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
