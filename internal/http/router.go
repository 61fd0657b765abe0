package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires the engine's HTTP surface: the six operations of spec
// §6 plus whatever middleware the caller wants applied, the same shape as
// the teacher's RouterConfig{Auth,Users,Rooms,Schedules,Middleware}.
type RouterConfig struct {
	Engine     *EngineHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Engine != nil {
		mux.HandleFunc("/classes/", func(w http.ResponseWriter, r *http.Request) {
			id, ok := trimSuffixPath(r.URL.Path, "/classes/", "/generate")
			if !ok {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			r = r.WithContext(ContextWithClassID(r.Context(), id))
			cfg.Engine.Generate(w, r)
		})

		mux.HandleFunc("/schedules/", func(w http.ResponseWriter, r *http.Request) {
			if id, ok := trimSuffixPath(r.URL.Path, "/schedules/", "/evaluate"); ok {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				r = r.WithContext(ContextWithScheduleID(r.Context(), id))
				cfg.Engine.Evaluate(w, r)
				return
			}
			if id, ok := trimSuffixPath(r.URL.Path, "/schedules/", "/conflicts"); ok {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				r = r.WithContext(ContextWithScheduleID(r.Context(), id))
				cfg.Engine.DetectConflicts(w, r)
				return
			}
			http.NotFound(w, r)
		})

		mux.HandleFunc("/occurrences/", func(w http.ResponseWriter, r *http.Request) {
			if id, ok := trimSuffixPath(r.URL.Path, "/occurrences/", "/cancel"); ok {
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				r = r.WithContext(ContextWithOccurrenceID(r.Context(), id))
				cfg.Engine.Cancel(w, r)
				return
			}
			if id, ok := trimSuffixPath(r.URL.Path, "/occurrences/", "/reschedule"); ok {
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				r = r.WithContext(ContextWithOccurrenceID(r.Context(), id))
				cfg.Engine.Reschedule(w, r)
				return
			}

			id := strings.TrimPrefix(r.URL.Path, "/occurrences/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPatch {
				methodNotAllowed(w, http.MethodPatch)
				return
			}
			r = r.WithContext(ContextWithOccurrenceID(r.Context(), id))
			cfg.Engine.Modify(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// trimSuffixPath extracts the path segment between prefix and suffix, e.g.
// trimSuffixPath("/classes/c1/generate", "/classes/", "/generate") -> ("c1", true).
func trimSuffixPath(path, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
