package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"autonomos/internal/core"
	"autonomos/internal/log"
	"autonomos/internal/middleware/security"
	"autonomos/internal/middleware/trace"
	"autonomos/internal/whatsapp"
)

// maxWebhookBody caps a single webhook delivery.
const maxWebhookBody = 1 << 20

// StatusText is served on the root path.
const StatusText = "Bot Autônomos online 🚗"

// Admitter receives the messages of a webhook delivery.
type Admitter interface {
	AdmitAll(ctx context.Context, msgs []core.InboundMessage) int
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	VerifyToken string
	// AppSecret enables X-Hub-Signature-256 validation when set.
	AppSecret string
	Intake    Admitter
	Health    Pinger
	Logger    *log.Logger
	// OnShutdown runs once when the server shuts down.
	OnShutdown func()
}

type Server struct {
	http.Server
	opts         Options
	logger       *log.Logger
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer builds the webhook server listening on addr.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}

	s := &Server{
		opts:   opts,
		logger: logger,
		tracer: trace.NewMiddleware(logger, extractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleStatus)
	mux.HandleFunc("GET /webhook", s.handleVerify)
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = log.ComponentMiddleware(log.ComponentWebhook)(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests and then runs the OnShutdown hook.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.shutdownOnce.Do(func() {
		if s.opts.OnShutdown != nil {
			s.opts.OnShutdown()
		}
	})
	return err
}

// TotalRequests returns how many requests the server has traced.
func (s *Server) TotalRequests() int64 {
	return s.tracer.TotalRequests()
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(StatusText))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				log.FieldError, err.Error())
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleVerify answers the subscription handshake.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	challenge, ok := whatsapp.VerifySubscription(r.URL.Query(), s.opts.VerifyToken)
	if !ok {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Webhook verification rejected")
		w.WriteHeader(http.StatusForbidden)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(challenge))
}

// handleWebhook acknowledges the delivery before any message is processed.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if s.opts.AppSecret != "" {
		if err := whatsapp.VerifySignature(s.opts.AppSecret, body, r.Header.Get(whatsapp.SignatureHeader)); err != nil {
			logger.WarnContext(ctx, "Rejected webhook delivery",
				log.FieldErrorType, log.ErrorTypeAuth,
				log.FieldError, err.Error())
			w.WriteHeader(http.StatusForbidden)
			return
		}
	}

	w.WriteHeader(http.StatusOK)

	payload, err := whatsapp.ParseWebhook(body)
	if err != nil {
		logger.WarnContext(ctx, "Ignoring malformed webhook payload", log.FieldError, err.Error())
		return
	}

	msgs := payload.InboundMessages()
	if len(msgs) == 0 || s.opts.Intake == nil {
		return
	}

	// Admission must outlive the request.
	admitted := s.opts.Intake.AdmitAll(context.WithoutCancel(ctx), msgs)
	logger.DebugContext(ctx, "Webhook messages admitted",
		log.FieldCount, len(msgs),
		"admitted", admitted)
}
