// Package httpapi exposes the counter program over HTTP.
//
// Writes authenticate with a bearer token checked by auth.Verifier; the
// verified caller is the only identity an operation ever acts for.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/roach88/counterslot/internal/auth"
	"github.com/roach88/counterslot/internal/counter"
	"github.com/roach88/counterslot/internal/ir"
	"github.com/roach88/counterslot/internal/store"
)

// RequestIDHeader carries the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Error codes for failures that are not program errors.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL"
)

// Server routes HTTP requests to a counter.Program.
type Server struct {
	program  *counter.Program
	verifier *auth.Verifier
	logger   *slog.Logger
}

// New creates a Server. A nil logger selects slog.Default().
func New(p *counter.Program, v *auth.Verifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{program: p, verifier: v, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/counter", s.initialize).Methods(http.MethodPost)
	v1.HandleFunc("/counter", s.update).Methods(http.MethodPut)
	v1.HandleFunc("/counters/{owner}", s.getByOwner).Methods(http.MethodGet)
	v1.HandleFunc("/counters/{owner}/address", s.locate).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{address}", s.getAccount).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{address}", s.updateAccount).Methods(http.MethodPut)
	v1.HandleFunc("/events", s.events).Methods(http.MethodGet)

	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener serves on an existing listener until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	s.logger.Info("http server listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type valueRequest struct {
	Value *int `json:"value"`
}

type addressResponse struct {
	Owner   ir.Identity `json:"owner"`
	Address ir.Address  `json:"address"`
	Bump    uint8       `json:"bump"`
}

type eventsResponse struct {
	Events []ir.Event `json:"events"`
	Next   int64      `json:"next"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": ir.ProgramVersion})
}

func (s *Server) initialize(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	res, err := s.program.Initialize(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	value, ok := s.decodeValue(w, r)
	if !ok {
		return
	}

	res, err := s.program.Update(r.Context(), caller, value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	addr, err := ir.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
		return
	}
	value, ok := s.decodeValue(w, r)
	if !ok {
		return
	}

	res, err := s.program.UpdateAccount(r.Context(), caller, addr, value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getByOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := ir.ParseIdentity(mux.Vars(r)["owner"])
	if err != nil {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
		return
	}

	rec, err := s.program.Get(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) locate(w http.ResponseWriter, r *http.Request) {
	owner, err := ir.ParseIdentity(mux.Vars(r)["owner"])
	if err != nil {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
		return
	}

	addr, bump, err := s.program.Locate(owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addressResponse{Owner: owner, Address: addr, Bump: bump})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := ir.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
		return
	}

	rec, err := s.program.GetAccount(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	after, err := queryInt(q.Get("after"), 0)
	if err != nil || after < 0 {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, "after must be a non-negative integer")
		return
	}
	limit, err := queryInt(q.Get("limit"), store.DefaultEventPageSize)
	if err != nil || limit <= 0 || limit > 1000 {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, "limit must be between 1 and 1000")
		return
	}

	events, err := s.program.Events(r.Context(), after, int(limit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	next := after
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Next: next})
}

// authenticate redeems the bearer token. Tokens are single-use, so a
// captured request cannot be replayed. On failure it writes 401.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		writeProblem(w, http.StatusUnauthorized, CodeUnauthenticated, "bearer token is required")
		return auth.Caller{}, false
	}

	caller, err := s.verifier.Redeem(token)
	if err != nil {
		s.logger.Debug("token rejected", "request_id", w.Header().Get(RequestIDHeader), "error", err)
		writeProblem(w, http.StatusUnauthorized, CodeUnauthenticated, err.Error())
		return auth.Caller{}, false
	}
	return caller, true
}

func (s *Server) decodeValue(w http.ResponseWriter, r *http.Request) (uint8, bool) {
	var req valueRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, fmt.Sprintf("decode body: %v", err))
		return 0, false
	}
	if req.Value == nil {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, "value is required")
		return 0, false
	}
	if *req.Value < 0 || *req.Value > 255 {
		writeProblem(w, http.StatusBadRequest, CodeInvalidArgument, "value must be between 0 and 255")
		return 0, false
	}
	return uint8(*req.Value), true
}

// writeError maps err to a status code and error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", w.Header().Get(RequestIDHeader),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeProblem(w, status, code, err.Error())
}

func statusFor(err error) (int, string) {
	switch counter.Code(err) {
	case counter.CodeAlreadyInitialized:
		return http.StatusConflict, string(counter.CodeAlreadyInitialized)
	case counter.CodeNotInitialized:
		return http.StatusNotFound, string(counter.CodeNotInitialized)
	case counter.CodeNotOwner:
		return http.StatusForbidden, string(counter.CodeNotOwner)
	case counter.CodeDerivationFailed:
		return http.StatusInternalServerError, string(counter.CodeDerivationFailed)
	}
	if errors.Is(err, auth.ErrUnauthenticated) {
		return http.StatusUnauthorized, CodeUnauthenticated
	}
	return http.StatusInternalServerError, CodeInternal
}

// requestID assigns a UUIDv7 request ID unless the client sent one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			if v7, err := uuid.NewV7(); err == nil {
				id = v7.String()
			}
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func queryInt(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
