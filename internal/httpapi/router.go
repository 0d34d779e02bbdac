// Package httpapi is the HTTP face of the service: the gRPC-Web bridge,
// the identity photo upload, health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"appointment-booking/internal/grpcweb"
	"appointment-booking/internal/middleware"
	"appointment-booking/internal/model"
	"appointment-booking/internal/photo"
	"appointment-booking/internal/session"
	"appointment-booking/internal/store"
)

// Config holds router dependencies. Nil Bridge, Photos or Gatherer leave the
// matching routes unmounted.
type Config struct {
	Logger        zerolog.Logger
	Sessions      middleware.Authenticator
	Photos        *photo.Store
	PhotoMaxBytes int64
	Store         store.Store
	Bridge        http.Handler
	Gatherer      prometheus.Gatherer
}

func New(cfg Config) http.Handler {
	log := cfg.Logger.With().Str("component", "http").Logger()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", health(cfg.Store))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.Bridge != nil {
		r.Handle(grpcweb.PathPrefix+"*", cfg.Bridge)
	}
	if cfg.Photos != nil && cfg.Sessions != nil {
		if cfg.PhotoMaxBytes <= 0 {
			cfg.PhotoMaxBytes = 5 << 20
		}
		up := &photoUpload{
			sessions: cfg.Sessions,
			photos:   cfg.Photos,
			maxBytes: cfg.PhotoMaxBytes,
			log:      log,
		}
		r.Post("/v1/identity/photo", up.ServeHTTP)
		r.Get("/v1/identity/photo", up.current)
	}
	return r
}

func health(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type photoUpload struct {
	sessions middleware.Authenticator
	photos   *photo.Store
	maxBytes int64
	log      zerolog.Logger
}

// authenticate writes the failure response itself and reports ok=false.
func (p *photoUpload) authenticate(w http.ResponseWriter, r *http.Request) (model.Session, bool) {
	token := middleware.BearerToken(r.Header.Get("Authorization"))
	sess, err := p.sessions.RequireAuthenticated(r.Context(), token)
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return sess, false
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return sess, false
	case err != nil:
		p.log.Error().Err(err).Msg("photo: session check")
		writeError(w, http.StatusInternalServerError, "internal error")
		return sess, false
	}
	return sess, true
}

func (p *photoUpload) current(w http.ResponseWriter, r *http.Request) {
	sess, ok := p.authenticate(w, r)
	if !ok {
		return
	}
	key, ok, err := p.photos.Lookup(r.Context(), sess.Username)
	switch {
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	case err != nil:
		p.log.Error().Err(err).Str("username", sess.Username).Msg("photo lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	case !ok:
		writeError(w, http.StatusNotFound, "no photo")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"key": key})
	}
}

func (p *photoUpload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := p.authenticate(w, r)
	if !ok {
		return
	}

	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "content type required")
		return
	}

	// one byte over the limit is enough to reject
	body, err := io.ReadAll(io.LimitReader(r.Body, p.maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	key, err := p.photos.Save(r.Context(), sess.Username, contentType, body)
	switch {
	case errors.Is(err, photo.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, photo.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, photo.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, photo.ErrEmpty):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	case err != nil:
		p.log.Error().Err(err).Str("username", sess.Username).Msg("photo upload failed")
		writeError(w, http.StatusBadGateway, "photo upload failed")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"key": key})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
