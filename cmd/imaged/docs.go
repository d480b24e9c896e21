package main

// General API documentation for swaggo. Regenerate internal/docs with `swag init -g cmd/imaged/docs.go -o internal/docs`.
//
// @title           imaged API
// @version         1.0
// @description     Asynchronous image generation jobs with model resolution, request dedup and optional payload encryption.
//
// @contact.name   imaged maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
