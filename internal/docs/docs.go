// Package docs holds the OpenAPI document served under /swagger/ when the
// binary is built with -tags=swagger. Regenerate with `make swagger-gen`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "imaged maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/generate": {
            "post": {
                "description": "Returns immediately with a job id. An identical request inside the dedup window returns the existing job id.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Submit a generation job",
                "parameters": [
                    {"description": "Generation parameters", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.GenerateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/job/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Job status",
                "parameters": [{"type": "string", "description": "Job id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.JobStatusResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/load-model": {
            "post": {
                "description": "Resolves a local path or hub id and makes it the current model.",
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Load a model",
                "parameters": [
                    {"type": "string", "description": "Local path or hub id", "name": "model_path", "in": "query", "required": true},
                    {"type": "string", "description": "Format or family hint (safetensors, ckpt, diffusers, sd15, sdxl)", "name": "model_type", "in": "query"},
                    {"type": "boolean", "description": "Discard a cached handle and load again", "name": "reload", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LoadModelResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Loaded and available models",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/samplers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Sampler catalogue",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SamplersResponse"}}
                }
            }
        },
        "/image/{path}": {
            "get": {
                "produces": ["image/png"],
                "tags": ["jobs"],
                "summary": "Generated image",
                "parameters": [{"type": "string", "description": "Image path relative to the outputs directory", "name": "path", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.LoRA": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "pixel-art"},
                "path": {"type": "string", "example": "loras/pixel-art.safetensors"},
                "weight": {"type": "number", "example": 0.8}
            }
        },
        "types.GenerateRequest": {
            "type": "object",
            "properties": {
                "batch_size": {"type": "integer", "example": 1},
                "cfg_scale": {"type": "number", "example": 7.5},
                "clip_skip": {"type": "integer", "example": 1},
                "enable_lcm": {"type": "boolean", "example": false},
                "height": {"type": "integer", "example": 512},
                "init_image": {"type": "string"},
                "loras": {"type": "array", "items": {"$ref": "#/definitions/types.LoRA"}},
                "model": {"type": "string", "example": "runwayml/stable-diffusion-v1-5"},
                "negative_prompt": {"type": "string", "example": "blurry, low quality"},
                "prompt": {"type": "string", "example": "a cat sitting on a windowsill"},
                "sampler": {"type": "string", "example": "DPM++ 2M Karras"},
                "seed": {"type": "integer", "example": -1},
                "steps": {"type": "integer", "example": 20},
                "strength": {"type": "number", "example": 0.75},
                "width": {"type": "integer", "example": 512}
            }
        },
        "types.GenerateResponse": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string", "example": "4f9a7c1e-2b0d-4a57-9d0e-6a3c2f1b8e77"},
                "message": {"type": "string", "example": "Generation job queued successfully"},
                "status": {"type": "string", "example": "accepted"}
            }
        },
        "types.ImageResult": {
            "type": "object",
            "properties": {
                "height": {"type": "integer", "example": 512},
                "image_id": {"type": "string"},
                "image_url": {"type": "string", "example": "/image/0b5e4c1d-5f8a-4b55-8a51-3b1d0a4f7e21.png"},
                "metadata": {"type": "object", "additionalProperties": {"type": "string"}},
                "path": {"type": "string"},
                "seed": {"type": "integer", "example": 1234567},
                "width": {"type": "integer", "example": 512}
            }
        },
        "types.JobStatusResponse": {
            "type": "object",
            "properties": {
                "completed_at": {"type": "string"},
                "created_at": {"type": "string"},
                "current_step": {"type": "integer", "example": 9},
                "error": {"type": "string"},
                "images": {"type": "array", "items": {"$ref": "#/definitions/types.ImageResult"}},
                "job_id": {"type": "string"},
                "message": {"type": "string"},
                "progress": {"type": "number", "example": 45},
                "results": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "example": "processing"},
                "total_steps": {"type": "integer", "example": 20}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "device": {"type": "string", "example": "cpu"},
                "jobs": {"type": "object", "additionalProperties": {"type": "integer"}},
                "message": {"type": "string", "example": "Inference service is running"},
                "models_loaded": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "example": "healthy"},
                "uptime_seconds": {"type": "number", "example": 3600}
            }
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "path": {"type": "string"},
                "type": {"type": "string", "example": "safetensors"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "available": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}},
                "loaded": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.SamplersResponse": {
            "type": "object",
            "properties": {
                "lcm_samplers": {"type": "array", "items": {"type": "string"}},
                "samplers": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.LoadModelResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "status": {"type": "string", "example": "success"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "imaged API",
	Description:      "Asynchronous image generation jobs with model resolution, request dedup and optional payload encryption.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
