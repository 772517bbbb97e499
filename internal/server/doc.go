// Package server runs the transports of the sync gateway.
//
// The HTTP server carries the REST and websocket routes; the optional gRPC
// server exposes the health service. Both stop gracefully when the context
// given to Run is done.
package server
