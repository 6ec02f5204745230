package rest

import (
	"contact-relay/errors"
	"contact-relay/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Response is the body of every request/response call.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Options struct {
	CallTimeout   time.Duration
	AllowedOrigin string
	StaticDir     string
}

type API struct {
	log     *slog.Logger
	service services.IRelayService
	options Options
}

func NewAPI(log *slog.Logger, service services.IRelayService, options Options) *API {
	return &API{log: log, service: service, options: options}
}

// Handler mounts the API at the root and under /api, the websocket at /ws
// and, when configured, the static frontend at /.
func (a *API) Handler(ws http.Handler) http.Handler {
	mux := http.NewServeMux()
	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("POST "+prefix+"/login", a.login)
		mux.HandleFunc("POST "+prefix+"/addUserRequest", a.addUserRequest)
		mux.HandleFunc("POST "+prefix+"/addUserResponse", a.addUserResponse)
		mux.HandleFunc("GET "+prefix+"/stats", a.stats)
	}
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
	if a.options.StaticDir != "" {
		mux.Handle("GET /", frontend(a.options.StaticDir))
	}
	return a.cors(mux)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var body services.LoginRequest
	if !a.decode(w, r, &body) {
		return
	}
	ctx, cancel := a.callContext(r)
	defer cancel()
	a.reply(w, a.service.Login(ctx, body), "Logged in")
}

func (a *API) addUserRequest(w http.ResponseWriter, r *http.Request) {
	var body services.FriendRequest
	if !a.decode(w, r, &body) {
		return
	}
	ctx, cancel := a.callContext(r)
	defer cancel()
	a.reply(w, a.service.AddUserRequest(ctx, body), "Request sent")
}

func (a *API) addUserResponse(w http.ResponseWriter, r *http.Request) {
	var body services.FriendResponse
	if !a.decode(w, r, &body) {
		return
	}
	ctx, cancel := a.callContext(r)
	defer cancel()
	a.reply(w, a.service.AddUserResponse(ctx, body), "Response sent")
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.callContext(r)
	defer cancel()
	stats, err := a.service.Stats(ctx)
	if err != nil {
		a.log.Error("Failed to take stats snapshot", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, Response{Message: errors.ToMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) callContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), a.options.CallTimeout)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, body any) bool {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		a.log.Debug("Malformed request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, Response{Message: errors.ErrMalformedRequest.Error()})
		return false
	}
	return true
}

// reply answers 200 for protocol outcomes and 503 when the relay could not be reached.
func (a *API) reply(w http.ResponseWriter, err error, success string) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, Response{Success: true, Message: success})
	case errors.IsProtocolError(err):
		writeJSON(w, http.StatusOK, Response{Message: errors.ToMessage(err)})
	default:
		writeJSON(w, http.StatusServiceUnavailable, Response{Message: errors.ToMessage(err)})
	}
}

func (a *API) cors(next http.Handler) http.Handler {
	origin := a.options.AllowedOrigin
	if origin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// frontend serves dir and falls back to index.html for client-side routes.
func frontend(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() && r.URL.Path != "/" {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
