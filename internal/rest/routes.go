// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tablegate/internal/platform/respond"
)

// Routes wires the generic data surface onto a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/tables", h.Tables)
	r.Post("/rpc/{routine}", h.Invoke)

	r.Route("/{table}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Patch("/", h.Patch)
		r.Delete("/", h.BulkDelete)

		r.Get("/count", h.Count)
		r.Get("/describe", h.Describe)
		r.Get("/groupby", h.GroupBy)
		r.Get("/aggregate", h.Aggregate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Read)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/exists", h.Exists)
			r.Get("/{child}", h.Relational)
		})
	})

	return r
}

// AdminRoutes wires the policy administration surface.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/reload", func(writer http.ResponseWriter, request *http.Request) {
		if err := h.policies.Reload(request.Context()); err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.OK(writer, map[string]string{"status": "reloaded"})
	})

	return r
}
