package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/copyleftdev/descent/internal/errors"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type jobParams struct {
	ID      string `json:"optimization_id"`
	History bool   `json:"history"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests. Methods:
//
//	optimization.start   params: run          result: {optimization_id, status}
//	optimization.status  params: {optimization_id, history}  result: job status
//	optimization.cancel  params: {optimization_id}           result: {optimization_id, status}
//
// Params may be passed as an object or as a one-element array.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, nil, &rpcError{Code: apperrors.RPCParseError, Message: "Parse error"})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.respondWithError(w, req.ID, &rpcError{Code: apperrors.RPCInvalidRequest, Message: "Invalid Request"})
		return
	}

	params, err := unwrapParams(req.Params)
	if err != nil {
		s.respondWithError(w, req.ID, &rpcError{Code: apperrors.RPCInvalidParams, Message: err.Error()})
		return
	}

	var result interface{}
	switch req.Method {
	case "optimization.start":
		result, err = s.rpcStart(params)
	case "optimization.status":
		result, err = s.rpcStatus(params)
	case "optimization.cancel":
		result, err = s.rpcCancel(params)
	default:
		s.respondWithError(w, req.ID, &rpcError{Code: apperrors.RPCMethodNotFound, Message: "Method not found"})
		return
	}

	if err != nil {
		e := apperrors.Wrap(err, "")
		s.respondWithError(w, req.ID, &rpcError{
			Code:    e.RPCCode(),
			Message: e.Error(),
			Data:    map[string]interface{}{"code": e.Code},
		})
		return
	}

	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: idOrNull(req.ID), Result: result})
}

// unwrapParams accepts an object or a single-element array holding one.
func unwrapParams(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return raw, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return list[0], nil
	default:
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "expected a single params object")
	}
}

func (s *Server) rpcStart(params json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "missing required parameters")
	}
	run, err := s.decodeRun(params)
	if err != nil {
		return nil, err
	}
	return s.submit(run)
}

func decodeJobParams(params json.RawMessage) (jobParams, error) {
	var p jobParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return p, apperrors.Errorf(apperrors.CodeInvalidRequest, "invalid parameters: %v", err)
		}
	}
	if p.ID == "" {
		return p, apperrors.New(apperrors.CodeInvalidRequest, "optimization_id is required")
	}
	return p, nil
}

func (s *Server) rpcStatus(params json.RawMessage) (interface{}, error) {
	p, err := decodeJobParams(params)
	if err != nil {
		return nil, err
	}
	return s.status(p.ID, p.History)
}

func (s *Server) rpcCancel(params json.RawMessage) (interface{}, error) {
	p, err := decodeJobParams(params)
	if err != nil {
		return nil, err
	}
	return s.cancelJob(p.ID)
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, id json.RawMessage, rpcErr *rpcError) {
	s.logger.Warn("rpc error", map[string]interface{}{
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	})
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: idOrNull(id), Error: rpcErr})
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
