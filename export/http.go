package export

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/recolte/idgen"
	"github.com/hazyhaar/recolte/journal"
	"github.com/hazyhaar/recolte/kit"
)

// Router builds the serve-mode HTTP API. passwordHash is a bcrypt hash;
// empty user disables auth (local-only listener).
func (e *Exporter) Router(user, passwordHash string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestID())
	if user != "" {
		r.Use(basicAuth(user, passwordHash))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/capture", func(w http.ResponseWriter, req *http.Request) {
		var er Request
		if err := decodeBody(req, &er); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		res, err := e.Capture(kit.WithTransport(req.Context(), "http"), er)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Post("/api/export", func(w http.ResponseWriter, req *http.Request) {
		var er Request
		if err := decodeBody(req, &er); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		res, err := e.Export(kit.WithTransport(req.Context(), "http"), er)
		if errors.Is(err, ErrNothingToExport) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Get("/api/journal", func(w http.ResponseWriter, req *http.Request) {
		if e.journal == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		entries, err := e.journal.Recent(req.Context(), req.URL.Query().Get("task"), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	return r
}

func requestID() func(http.Handler) http.Handler {
	gen := idgen.Prefixed("req_", idgen.NanoID(12))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), gen())))
		})
	}
}

func basicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="recolte"`)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(kit.WithUserID(r.Context(), u)))
		})
	}
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
