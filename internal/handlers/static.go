// internal/handlers/static.go
package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
)

// IndexHandler serves the static client entry document from the
// configured client directory.
func IndexHandler(clientDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
	}
}

// PingHandler is a trivial liveness endpoint.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}
