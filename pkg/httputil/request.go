package httputil

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// PathParam extracts a non-blank path parameter
func PathParam(r *http.Request, key string) (string, error) {
	value := strings.TrimSpace(mux.Vars(r)[key])
	if value == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return value, nil
}

// PathParamOrError extracts a path parameter and writes a 400 on failure
func PathParamOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	value, err := PathParam(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return "", false
	}
	return value, true
}

// QueryParam returns a trimmed query parameter or defaultValue when absent
func QueryParam(r *http.Request, key, defaultValue string) string {
	if value := strings.TrimSpace(r.URL.Query().Get(key)); value != "" {
		return value
	}
	return defaultValue
}
