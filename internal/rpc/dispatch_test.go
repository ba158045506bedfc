package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/babar-raza/tbcv/internal/accessguard"
	"github.com/babar-raza/tbcv/internal/metrics"
	"github.com/babar-raza/tbcv/internal/rpcerr"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestDispatcher(t *testing.T) (*Registry, *Dispatcher) {
	t.Helper()
	reg := NewRegistry()
	d := NewDispatcher(reg, nil)
	return reg, d
}

func TestDispatchRejectsWrongProtocolVersion(t *testing.T) {
	_, d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), Request{JSONRPC: "1.0", Method: "whatever"})
	if resp.Error == nil || resp.Error.Code != rpcerr.CodeInvalidRequest {
		t.Fatalf("Error = %+v, want CodeInvalidRequest", resp.Error)
	}
}

func TestDispatchRejectsEmptyMethod(t *testing.T) {
	_, d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0"})
	if resp.Error == nil || resp.Error.Code != rpcerr.CodeInvalidRequest {
		t.Fatalf("Error = %+v, want CodeInvalidRequest", resp.Error)
	}
}

func TestDispatchMethodNotFound(t *testing.T) {
	_, d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "no_such_method"})
	if resp.Error == nil || resp.Error.Code != rpcerr.CodeMethodNotFound {
		t.Fatalf("Error = %+v, want CodeMethodNotFound", resp.Error)
	}
}

func TestDispatchMalformedParamsJSONIsParseError(t *testing.T) {
	reg, d := newTestDispatcher(t)
	reg.register("echo", CategoryQuery, ParamSchema{}, func(ctx context.Context, params map[string]any) (any, error) {
		return params, nil
	})

	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "echo", Params: json.RawMessage(`not-json`)})
	if resp.Error == nil || resp.Error.Code != rpcerr.CodeParseError {
		t.Fatalf("Error = %+v, want CodeParseError", resp.Error)
	}
}

func TestDispatchInvalidParamsMissingRequired(t *testing.T) {
	reg, d := newTestDispatcher(t)
	reg.register("needs_id", CategoryQuery, ParamSchema{
		Required: []ParamSpec{{Name: "id", Type: TypeString}},
	}, func(ctx context.Context, params map[string]any) (any, error) {
		return "ok", nil
	})

	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "needs_id", Params: json.RawMessage(`{}`)})
	if resp.Error == nil || resp.Error.Code != rpcerr.CodeInvalidParams {
		t.Fatalf("Error = %+v, want CodeInvalidParams", resp.Error)
	}
}

func TestDispatchSuccessStampsRPCContext(t *testing.T) {
	reg, d := newTestDispatcher(t)
	var sawRPCContext bool
	reg.register("stamped", CategoryQuery, ParamSchema{}, func(ctx context.Context, params map[string]any) (any, error) {
		sawRPCContext = accessguard.IsRPCContext(ctx)
		return "done", nil
	})

	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "stamped", ID: 1})
	if resp.Error != nil {
		t.Fatalf("Error = %+v, want nil", resp.Error)
	}
	if resp.Result != "done" {
		t.Errorf("Result = %v, want %q", resp.Result, "done")
	}
	if !sawRPCContext {
		t.Error("handler did not observe an accessguard-stamped context")
	}
	if resp.ID != 1 {
		t.Errorf("ID = %v, want 1 (echoed from request)", resp.ID)
	}
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	reg, d := newTestDispatcher(t)
	reg.register("boom", CategoryQuery, ParamSchema{}, func(ctx context.Context, params map[string]any) (any, error) {
		panic("handler exploded")
	})

	before := testutil.ToFloat64(metrics.RPCRequestsTotal.WithLabelValues("boom", "panic"))
	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "boom"})
	if resp.Error == nil || resp.Error.Code != rpcerr.CodeInternalError {
		t.Fatalf("Error = %+v, want CodeInternalError after panic recovery", resp.Error)
	}

	if got := testutil.ToFloat64(metrics.RPCRequestsTotal.WithLabelValues("boom", "panic")); got != before+1 {
		t.Errorf("requests_total{method=boom,outcome=panic} = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(metrics.RPCRequestsTotal.WithLabelValues("boom", "ok")); got != 0 {
		t.Errorf("requests_total{method=boom,outcome=ok} = %v, want 0 (panic must not also record ok)", got)
	}
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	reg, d := newTestDispatcher(t)
	reg.register("fails", CategoryQuery, ParamSchema{}, func(ctx context.Context, params map[string]any) (any, error) {
		return nil, rpcerr.NotFound("validation", "missing")
	})

	resp := d.Dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "fails"})
	if resp.Error == nil || resp.Error.Code != rpcerr.CodeNotFound {
		t.Fatalf("Error = %+v, want CodeNotFound", resp.Error)
	}
}

func TestParseErrorResponse(t *testing.T) {
	resp := ParseErrorResponse(context.DeadlineExceeded)
	if resp.Error == nil || resp.Error.Code != rpcerr.CodeParseError {
		t.Fatalf("Error = %+v, want CodeParseError", resp.Error)
	}
	if resp.JSONRPC != protocolVersion {
		t.Errorf("JSONRPC = %q, want %q", resp.JSONRPC, protocolVersion)
	}
}

func TestDecodeParamsEmptyRawIsEmptyObject(t *testing.T) {
	m, err := decodeParams(nil)
	if err != nil {
		t.Fatalf("decodeParams(nil) error = %v", err)
	}
	if len(m) != 0 {
		t.Errorf("decodeParams(nil) = %v, want empty map", m)
	}
}
