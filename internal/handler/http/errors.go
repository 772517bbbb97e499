// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

// Sentinel errors of the HTTP layer. Callers can match against them with
// [errors.Is].
var (
	// ErrEmptyAuthorizationHeader is returned by the auth middleware when the
	// incoming request does not include an "Authorization" header at all.
	ErrEmptyAuthorizationHeader = errors.New("empty `Authorization` header")

	// ErrInvalidAuthorizationHeader is returned when the "Authorization"
	// header is not of the form "Bearer <token>".
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")

	// ErrEmptyToken is returned when the "Authorization" header contains the
	// expected scheme but the token value itself is empty.
	ErrEmptyToken = errors.New("empty token in `Authorization` header")

	// ErrInvalidJSON is returned for request bodies that are not a JSON
	// object of the expected shape.
	ErrInvalidJSON = errors.New("invalid JSON was passed")

	// ErrNoOwnerInContext means a protected handler ran without the auth
	// middleware.
	ErrNoOwnerInContext = errors.New("no owner in request context")
)

// unauthorizedMessage is the only body ever sent with a 401.
const unauthorizedMessage = "Unauthorized"
