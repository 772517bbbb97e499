// Package service holds the business logic of the sync server: token
// issuing and validation, per-delta validation in front of the delta store,
// health and build information.
package service
