// Package server exposes the convert pipeline behind a minimal upload page,
// the successor to the tool's old drag-and-drop front end. One request
// converts one file; nothing is kept server-side.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"gradesheet/internal/canvas"
	"gradesheet/internal/i18n"
	"gradesheet/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxUploadBytes bounds the multipart form held in memory per request.
const maxUploadBytes = 32 << 20

// Handler serves the upload page and the conversion endpoint.
type Handler struct{}

// New creates a new Handler.
func New() *Handler {
	return &Handler{}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/convert", h.handleConvert)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
<form action="convert" method="post" enctype="multipart/form-data">
<input type="file" name="file" accept=".csv" required>
<button type="submit">%s</button>
</form>
</body>
</html>
`,
		i18n.T(ctx, "AppTitle"),
		i18n.T(ctx, "AppTitle"),
		i18n.T(ctx, "UploadPrompt"),
		i18n.T(ctx, "ConvertButton"))
}

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	export, err := canvas.ParseReader(file)
	if err != nil {
		var schemaErr *canvas.SchemaError
		if errors.As(err, &schemaErr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	wb, err := workbook.Render(r.Context(), export)
	if err != nil {
		slog.Error("render workbook", "file", header.Filename, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer wb.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputName(header.Filename)))
	if _, err := wb.WriteTo(w); err != nil {
		slog.Error("write workbook response", "file", header.Filename, "error", err)
	}
}

// outputName swaps the upload's extension for .xlsx, dropping any path the
// client sent along.
func outputName(uploadName string) string {
	base := filepath.Base(uploadName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
}
