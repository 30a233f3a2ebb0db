package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gregoryjjb/grove/mixing"
)

const maxBodyBytes = 8 << 20

/////////////////////
// Response helpers

func RespondInternalServiceError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(err.Error()))
}

func RespondNotFoundError(w http.ResponseWriter, body string) {
	w.WriteHeader(http.StatusNotFound)
	if body == "" {
		body = "Not found"
	}
	RespondText(w, body)
}

func RespondBadRequest(w http.ResponseWriter, message string) {
	w.WriteHeader(http.StatusBadRequest)
	RespondText(w, message)
}

func RespondText(w http.ResponseWriter, body string) {
	w.Write([]byte(body))
}

func RespondJSON(w http.ResponseWriter, body any) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		RespondInternalServiceError(w, err)
	}
}

// isClientError reports whether err was caused by the values or options a
// caller sent.
func isClientError(err error) bool {
	return errors.Is(err, mixing.ErrValidation) ||
		errors.Is(err, mixing.ErrNoValues) ||
		errors.Is(err, mixing.ErrNoSentinel) ||
		errors.Is(err, mixing.ErrOverflow)
}

type MixRequest struct {
	Values        []int64 `json:"values"`
	Decrypt       bool    `json:"decrypt"`
	DecryptionKey *int64  `json:"decryption_key"`
	Rounds        *int    `json:"rounds"`
	Offsets       []int   `json:"offsets"`
	Sentinel      *int64  `json:"sentinel"`
}

// Options starts from the configured single mix or decryption routine and
// applies the request's overrides.
func (mr *MixRequest) Options(config *Config) mixing.Options {
	opts := config.MixOptions()
	if mr.Decrypt {
		opts = config.DecryptOptions()
	}
	if mr.DecryptionKey != nil {
		opts.DecryptionKey = *mr.DecryptionKey
	}
	if mr.Rounds != nil {
		opts.Rounds = *mr.Rounds
	}
	if len(mr.Offsets) > 0 {
		opts.Offsets = mr.Offsets
	}
	if mr.Sentinel != nil {
		opts.Sentinel = *mr.Sentinel
	}
	return opts
}

// decodeMixRequest accepts either a JSON MixRequest or a plain text puzzle
// input, in which case overrides come from the query string.
func decodeMixRequest(r *http.Request) (*MixRequest, error) {
	var req MixRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		values, err := mixing.ParseValues(r.Body)
		if err != nil {
			return nil, err
		}
		req.Values = values

		q := r.URL.Query()
		if v := q.Get("decrypt"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("decrypt: %w", err)
			}
			req.Decrypt = b
		}
		if v := q.Get("rounds"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("rounds: %w", err)
			}
			req.Rounds = &n
		}
		if v := q.Get("key"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("key: %w", err)
			}
			req.DecryptionKey = &n
		}
		return &req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func NewRouter(config *Config, solver *Solver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware(httpLog))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			RespondText(w, "ok")
		})

		// POST a list of numbers to mix
		r.Post("/mix", func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

			req, err := decodeMixRequest(r)
			if err != nil {
				RespondBadRequest(w, err.Error())
				return
			}

			run, err := solver.Solve(r.Context(), req.Values, req.Options(config))
			if err != nil {
				if isClientError(err) {
					RespondBadRequest(w, err.Error())
					return
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					// Client is gone; nobody reads the body
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				RespondInternalServiceError(w, err)
				return
			}

			RespondJSON(w, run)
		})

		// GET recent runs
		r.Get("/runs", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Cache-Control", "no-cache, no-store")
			RespondJSON(w, solver.Runs())
		})

		// GET single run
		r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
			if err != nil {
				RespondBadRequest(w, "run id must be a number")
				return
			}

			run, ok := solver.Run(id)
			if !ok {
				RespondNotFoundError(w, fmt.Sprintf("run %d not found", id))
				return
			}

			RespondJSON(w, run)
		})

		r.Get("/events", createWebsocketHandler(solver))
	})

	return r
}

// StartServer serves until ctx is cancelled.
func StartServer(ctx context.Context, config *Config, solver *Solver) error {
	srv := &http.Server{
		Addr:              config.Address(),
		Handler:           NewRouter(config, solver),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		httpLog.Info().Str("listen", srv.Addr).Msg("launching server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	solver.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
