// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-delta-sync/internal/utils"
)

// CheckHTTPMethod returns the handler registered as the router's
// MethodNotAllowed handler.
//
// Chi answers 405 when a path is known but the method is not. The sync
// gateway hides route existence instead: unsupported methods get the same
// 404 as unknown paths. A request whose method does match (for example a
// route added after the check was built) is served normally.
func CheckHTTPMethod(router *chi.Mux) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if router.Match(chi.NewRouteContext(), r.Method, r.URL.Path) {
			router.ServeHTTP(w, r)
			return
		}

		notFound(w, r)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	utils.WriteError(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}
