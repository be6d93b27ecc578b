// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/taibuivan/tablegate/internal/catalog"
	"github.com/taibuivan/tablegate/internal/platform/apperr"
	"github.com/taibuivan/tablegate/internal/platform/dberr"
	requestutil "github.com/taibuivan/tablegate/internal/platform/request"
	"github.com/taibuivan/tablegate/internal/platform/respond"
)

// Invoke executes a stored procedure or function discovered at startup.
//
// Arguments are bound positionally from the JSON body in declared parameter
// order; inputs the body omits bind NULL. Procedures run as CALL and answer
// with their first result set; functions run as a scalar SELECT aliased
// `result`.
func (h *Handler) Invoke(writer http.ResponseWriter, request *http.Request) {
	name := requestutil.Param(request, "routine")
	routine, ok := h.cat.Routine(name)
	if !ok {
		respond.Error(writer, request, apperr.NotFound("Routine"))
		return
	}

	var body map[string]any
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &body); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	params := routine.InParams()
	args := make([]any, len(params))
	placeholders := make([]string, len(params))
	for i, param := range params {
		value, err := bindRoutineArg(param.Name, body[param.Name])
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		args[i] = value
		placeholders[i] = "?"
	}
	bindList := strings.Join(placeholders, ", ")

	var sqlText string
	if routine.Kind == catalog.RoutineFunction {
		sqlText = "SELECT " + quoteIdent(routine.Name) + "(" + bindList + ") AS `result`"
	} else {
		sqlText = "CALL " + quoteIdent(routine.Name) + "(" + bindList + ")"
	}

	rows, err := h.exec.Query(request.Context(), h.claims(request), sqlText, args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "invoke "+routine.Name))
		return
	}

	respond.OK(writer, rows)
}

// bindRoutineArg prepares one argument for binding: structured JSON values
// are serialized to text since the driver cannot bind maps or slices.
func bindRoutineArg(name string, value any) (any, error) {
	switch value.(type) {
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, apperr.ValidationError("Unserializable value for parameter " + name)
		}
		return string(encoded), nil
	}
	return value, nil
}
