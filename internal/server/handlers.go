package server

import (
	"errors"
	"io/fs"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

type testResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

type checkFilesResponse struct {
	Directory string          `json:"directory"`
	Files     []string        `json:"files"`
	Expected  map[string]bool `json:"expected"`
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, testResponse{
		Status:      "ok",
		Message:     "server is running",
		Timestamp:   s.now().UTC(),
		Environment: s.cfg.Environment,
	})
}

func (s *Server) handleCheckFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := fs.ReadDir(s.files, ".")
	if err != nil {
		s.logger.Warn("listing static files failed",
			zap.String("directory", s.directory()),
			zap.Error(err),
		)
		writeJSONError(w, &apiError{
			Status:  http.StatusInternalServerError,
			Code:    "filesystem_error",
			Message: err.Error(),
		})
		return
	}

	files := make([]string, 0, len(entries))
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		files = append(files, e.Name())
		present[e.Name()] = true
	}
	sort.Strings(files)

	expected := make(map[string]bool, len(s.cfg.ExpectedFiles))
	for _, name := range s.cfg.ExpectedFiles {
		expected[name] = present[name]
	}

	writeJSON(w, http.StatusOK, checkFilesResponse{
		Directory: s.directory(),
		Files:     files,
		Expected:  expected,
	})
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(s.files, s.cfg.AdminFile)
	if err != nil {
		apiErr := &apiError{
			Status:  http.StatusInternalServerError,
			Code:    "filesystem_error",
			Message: err.Error(),
		}
		if errors.Is(err, fs.ErrNotExist) {
			apiErr.Code = "missing_file"
			apiErr.Message = "admin page not found"
			apiErr.Path = s.adminPath()
		}
		s.logger.Warn("serving admin page failed", zap.String("path", s.adminPath()), zap.Error(err))
		writeJSONError(w, apiErr)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin", http.StatusFound)
}
