package middleware

import (
	"net/http"

	"github.com/agenthive/proxy-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
