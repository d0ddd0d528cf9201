package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/prism-ops/llm-resilience/internal/breaker"
)

// Handler routes inbound chat requests to the primary or fallback backend
// according to the breaker, and reports every primary outcome back to it.
type Handler struct {
	logger    *slog.Logger
	breaker   *breaker.Breaker
	forwarder *Forwarder
	primary   Backend
	fallback  Backend
}

func NewHandler(logger *slog.Logger, br *breaker.Breaker, forwarder *Forwarder, primary, fallback Backend) *Handler {
	return &Handler{
		logger:    logger,
		breaker:   br,
		forwarder: forwarder,
		primary:   primary,
		fallback:  fallback,
	}
}

// Routes builds the gateway's HTTP surface: POST /v1/chat and GET /healthz.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", h.handleChat)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	return mux
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	target := h.breaker.ChooseTarget()
	backend := h.primary
	if target == breaker.TargetFallback {
		backend = h.fallback
	}

	h.logger.Info("Forwarding chat request",
		slog.String("target", backend.Name),
		slog.String("breaker", h.breaker.Status().String()))

	contentType := r.Header.Get("Content-Type")

	resp, err := h.forwarder.Forward(r.Context(), backend, body, contentType)
	if err == nil {
		if target == breaker.TargetPrimary {
			h.breaker.OnPrimaryResult(true)
		}
		relay(w, backend, resp)
		return
	}

	if target != breaker.TargetPrimary {
		// Fallback already failed; nothing left to try.
		h.logger.Error("Fallback request failed", slog.Any("err", err))
		writeError(w, http.StatusServiceUnavailable, "llm_unavailable")
		return
	}

	h.logger.Warn("Primary request failed, retrying on fallback",
		slog.Any("err", err))
	h.breaker.OnPrimaryResult(false)

	resp, err = h.forwarder.Forward(r.Context(), h.fallback, body, contentType)
	if err != nil {
		h.logger.Error("Fallback request failed", slog.Any("err", err))
		writeError(w, http.StatusServiceUnavailable, "llm_unavailable")
		return
	}

	relay(w, h.fallback, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.breaker.Snapshot())
}

// relay passes the upstream status, content type and body through verbatim.
func relay(w http.ResponseWriter, backend Backend, resp *upstreamResponse) {
	if resp.contentType != "" {
		w.Header().Set("Content-Type", resp.contentType)
	}
	w.Header().Set("X-LLM-Target", backend.Name)
	w.WriteHeader(resp.status)
	_, _ = w.Write(resp.body)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
