package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description as YAML and as JSON
type OpenAPIHandler struct {
	openAPIPath string
	baseDir     string
}

// NewOpenAPIHandler creates a new OpenAPI handler with path validation
func NewOpenAPIHandler(openAPIPath string) *OpenAPIHandler {
	absPath, _ := filepath.Abs(openAPIPath)
	baseDir, _ := filepath.Abs(filepath.Dir(openAPIPath))

	return &OpenAPIHandler{
		openAPIPath: absPath,
		baseDir:     baseDir,
	}
}

// RegisterRoutes registers OpenAPI routes
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

// validatePath ensures the file path is within the allowed directory
func (h *OpenAPIHandler) validatePath() error {
	absPath, err := filepath.Abs(filepath.Clean(h.openAPIPath))
	if err != nil {
		return err
	}
	relPath, err := filepath.Rel(h.baseDir, absPath)
	if err != nil {
		return err
	}
	if filepath.IsAbs(relPath) || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return os.ErrPermission
	}
	return nil
}

func (h *OpenAPIHandler) read(w http.ResponseWriter) ([]byte, bool) {
	if err := h.validatePath(); err != nil {
		respondJSONError(w, http.StatusNotFound, "not_found", "OpenAPI specification not found")
		return nil, false
	}
	data, err := os.ReadFile(h.openAPIPath)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "not_found", "OpenAPI specification not found")
		return nil, false
	}
	return data, true
}

// ServeYAML serves the OpenAPI spec in YAML format
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	data, ok := h.read(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(data)
}

// ServeJSON serves the OpenAPI spec in JSON format
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	data, ok := h.read(w)
	if !ok {
		return
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to parse OpenAPI specification")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to encode OpenAPI specification")
	}
}
