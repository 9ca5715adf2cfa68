package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agentpay/core"
	nativecommon "agentpay/native/common"
	telemetry "agentpay/observability/otel"
)

const jsonRPCVersion = "2.0"

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeLedgerError    = -32001
	codeRateLimited    = -32020
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorData carries the stable ledger reason code of a failed call.
type ErrorData struct {
	Reason string `json:"reason"`
}

type methodHandler func(s *Server, r *http.Request, req *RPCRequest) (interface{}, *RPCError, int)

var methods = map[string]methodHandler{
	"ledger_sendTransaction":   (*Server).sendTransaction,
	"ledger_getBalance":        (*Server).getBalance,
	"ledger_getNonce":          (*Server).getNonce,
	"ledger_getCreator":        (*Server).getCreator,
	"ledger_getAgent":          (*Server).getAgent,
	"ledger_getContent":        (*Server).getContent,
	"ledger_getCreatorContent": (*Server).getCreatorContent,
	"ledger_getCustodyAccount": (*Server).getCustodyAccount,
	"ledger_getCampaign":       (*Server).getCampaign,
	"ledger_getCampaignStats":  (*Server).getCampaignStats,
	"ledger_hasAccess":         (*Server).hasAccess,
	"ledger_getParams":         (*Server).getParams,
	"ledger_getFeeTotals":      (*Server).getFeeTotals,
	"ledger_stateRoot":         (*Server).stateRoot,
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle decodes one JSON-RPC request and routes it to its method.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	handler, ok := methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}

	ctx, span := telemetry.Tracer("agentpay/rpc").Start(r.Context(), req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("rpc.system", "jsonrpc"), attribute.String("rpc.method", req.Method)))
	defer span.End()

	start := time.Now()
	result, rpcErr, status := handler(s, r.WithContext(ctx), req)
	s.observe(req.Method, rpcErr != nil, start)
	if rpcErr != nil {
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", rpcErr.Code))
		span.SetStatus(codes.Error, rpcErr.Message)
		s.logger.Debug("rpc call failed",
			slog.String("method", req.Method),
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("error", rpcErr.Message))
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

func invalidParams(format string, args ...interface{}) (*RPCError, int) {
	return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf(format, args...)}, http.StatusBadRequest
}

// ledgerError maps a ledger failure to an RPC error carrying its reason.
func ledgerError(err error) (*RPCError, int) {
	reason := nativecommon.Reason(err)
	status := http.StatusBadRequest
	code := codeLedgerError
	switch {
	case errors.Is(err, nativecommon.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidTransaction):
		reason = "InvalidTransaction"
		code = codeInvalidParams
	case reason == nativecommon.ReasonInternal:
		status = http.StatusInternalServerError
		code = codeServerError
	}
	return &RPCError{Code: code, Message: err.Error(), Data: ErrorData{Reason: reason}}, status
}

func (s *Server) requireParams(req *RPCRequest, min, max int) (*RPCError, int) {
	if len(req.Params) < min || len(req.Params) > max {
		if min == max {
			return invalidParams("expected %d parameter(s), got %d", min, len(req.Params))
		}
		return invalidParams("expected between %d and %d parameters, got %d", min, max, len(req.Params))
	}
	return nil, 0
}
