package httpgw

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/babar-raza/tbcv/internal/rpc"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func logRequest(method, path string, status int, dur time.Duration) {
	event := log.Info()
	if status >= 500 {
		event = log.Error()
	} else if status >= 400 {
		event = log.Warn()
	}
	event.Str("method", method).Str("path", path).Int("status", status).Dur("duration", dur).Msg("http request")
}

type gatewayHandlers struct {
	dispatcher *rpc.Dispatcher
	registry   *rpc.Registry
}

// handleJSONRPC is the canonical entry point: a JSON-RPC 2.0 envelope in,
// a JSON-RPC 2.0 envelope out, even on transport-level decode failure.
func (h *gatewayHandlers) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req rpc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		json.NewEncoder(w).Encode(rpc.ParseErrorResponse(err))
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), req)
	json.NewEncoder(w).Encode(resp)
}

// handleMethodCall adapts the {method} path segment plus a bare params
// object body into the same Dispatcher.Dispatch call the JSON-RPC route
// uses, for callers that would rather not build an envelope by hand.
func (h *gatewayHandlers) handleMethodCall(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	method := chi.URLParam(r, "method")

	var raw json.RawMessage
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			json.NewEncoder(w).Encode(rpc.ParseErrorResponse(err))
			return
		}
	}

	req := rpc.Request{JSONRPC: "2.0", Method: method, Params: raw}
	resp := h.dispatcher.Dispatch(r.Context(), req)
	if resp.Error != nil {
		w.WriteHeader(http.StatusBadRequest)
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *gatewayHandlers) listMethods(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.registry.List())
}
