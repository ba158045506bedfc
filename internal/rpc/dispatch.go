package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/babar-raza/tbcv/internal/accessguard"
	"github.com/babar-raza/tbcv/internal/metrics"
	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/babar-raza/tbcv/internal/store"
	"github.com/babar-raza/tbcv/internal/telemetry"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const protocolVersion = "2.0"

// Request is the inbound JSON-RPC 2.0 envelope (§4.1).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

// Response is the outbound envelope: exactly one of Result/Error is set.
type Response struct {
	JSONRPC string       `json:"jsonrpc"`
	Result  any          `json:"result,omitempty"`
	Error   *rpcerr.Error `json:"error,omitempty"`
	ID      any          `json:"id"`
}

// Dispatcher wires a Registry to the store (for audit logging) and exposes
// Dispatch as the single entry point every caller (httpgw, the in-process
// tbcvctl client) goes through. There is no stdio transport.
type Dispatcher struct {
	registry *Registry
	audit    store.AuditStore
}

// NewDispatcher builds a Dispatcher. audit may be nil, in which case no
// audit events are recorded (used by tests that don't need the log).
func NewDispatcher(reg *Registry, audit store.AuditStore) *Dispatcher {
	return &Dispatcher{registry: reg, audit: audit}
}

// Dispatch validates the envelope, resolves and invokes the named method,
// and always returns a well-formed Response — it never returns an error
// itself; transport failures become -32700/-32600 responses instead, per
// §7 "every call returns, nothing ever hangs the dispatcher."
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Response {
	resp := &Response{JSONRPC: protocolVersion, ID: req.ID}

	if req.JSONRPC != "" && req.JSONRPC != protocolVersion {
		resp.Error = rpcerr.New(rpcerr.CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return resp
	}
	if req.Method == "" {
		resp.Error = rpcerr.New(rpcerr.CodeInvalidRequest, "method is required")
		return resp
	}

	handler, schema, ok := d.registry.Get(req.Method)
	if !ok {
		resp.Error = rpcerr.Newf(rpcerr.CodeMethodNotFound, "method %q not found", req.Method)
		return resp
	}

	params, perr := decodeParams(req.Params)
	if perr != nil {
		resp.Error = rpcerr.New(rpcerr.CodeParseError, "params must be a JSON object")
		return resp
	}

	if missing, invalid := validateParams(schema, params); len(missing) > 0 || len(invalid) > 0 {
		data := map[string]any{}
		if len(missing) > 0 {
			data["missing"] = missing
		}
		if len(invalid) > 0 {
			data["invalid"] = invalid
		}
		resp.Error = rpcerr.InvalidParams("invalid params").WithData(data)
		return resp
	}

	result, err := d.invoke(ctx, req.Method, handler, params)
	if err != nil {
		resp.Error = rpcerr.As(err)
	} else {
		resp.Result = result
	}

	d.recordAudit(ctx, req.Method, params, resp.Error)
	return resp
}

// invoke calls handler under tracing, metrics, accessguard stamping, and
// panic recovery, so one misbehaving method never takes the dispatcher
// itself down (§7 "panics never escape Dispatch").
func (d *Dispatcher) invoke(ctx context.Context, method string, handler Handler, params map[string]any) (result any, err error) {
	start := time.Now()
	ctx, span := telemetry.Tracer("tbcv/rpc").Start(ctx, "rpc."+method)
	defer span.End()

	ctx = accessguard.WithRPCContext(ctx, method)

	defer func() {
		outcome := "ok"
		if r := recover(); r != nil {
			log.Error().Str("method", method).Interface("panic", r).Msg("rpc: handler panicked")
			err = rpcerr.Newf(rpcerr.CodeInternalError, "internal error handling %q", method)
			result = nil
			outcome = "panic"
		} else if err != nil {
			outcome = "error"
		}
		metrics.RPCRequestsTotal.WithLabelValues(method, outcome).Inc()
		metrics.RPCLatencySeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	result, err = handler(ctx, params)
	return result, err
}

func (d *Dispatcher) recordAudit(ctx context.Context, method string, params map[string]any, rerr *rpcerr.Error) {
	if d.audit == nil {
		return
	}
	event := &models.AuditEvent{
		ID:        uuid.NewString(),
		Method:    method,
		Params:    params,
		Result:    "ok",
		Timestamp: time.Now().UTC(),
	}
	if rerr != nil {
		event.Result = "error"
		event.ErrorCode = rerr.Code
	}
	if err := d.audit.CreateAuditEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("method", method).Msg("rpc: failed to record audit event")
	}
}

// ParseErrorResponse builds the -32700 envelope a transport returns when it
// can't even decode a Request — httpgw uses this for malformed HTTP bodies,
// the one failure mode that happens before Dispatch ever sees a Request.
func ParseErrorResponse(err error) *Response {
	return &Response{
		JSONRPC: protocolVersion,
		Error:   rpcerr.Newf(rpcerr.CodeParseError, "parse error: %v", err),
	}
}

func decodeParams(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
