/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/cronoapp/internal/export"
)

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		a.writeServiceError(w, r, err, "export")
		return
	}
	start, end, ok := parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_range")
		return
	}

	res, err := a.export.Export(r.Context(), currentUser(r), format, start, end)
	if err != nil {
		a.writeServiceError(w, r, err, "export")
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (a *API) handleExportArchive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string    `json:"format"`
		Start  time.Time `json:"start"`
		End    time.Time `json:"end"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		a.writeServiceError(w, r, err, "archive")
		return
	}

	res, err := a.export.Archive(r.Context(), currentUser(r), format, req.Start, req.End)
	if err != nil {
		a.writeServiceError(w, r, err, "archive")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
