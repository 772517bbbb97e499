// Package http implements the REST surface of the sync gateway.
//
// Admission control (CORS, per-IP rate limiting) runs first, then tracing
// and access logging, then the bearer-token guard in front of every /sync
// route. Handlers only translate between JSON and the service layer.
package http
