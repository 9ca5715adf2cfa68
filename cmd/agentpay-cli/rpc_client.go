package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type rpcClient struct {
	endpoint string
	http     *http.Client
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

func newRPCClient(endpoint string) *rpcClient {
	return &rpcClient{endpoint: endpoint, http: &http.Client{Timeout: 15 * time.Second}}
}

// call posts a JSON-RPC request with positional params.
func (c *rpcClient) call(method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()
	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("rpc %s: decode response (HTTP %d): %w", method, resp.StatusCode, err)
	}
	if decoded.Error != nil {
		if len(decoded.Error.Data) > 0 {
			return nil, fmt.Errorf("rpc %s: %s (%s)", method, decoded.Error.Message, decoded.Error.Data)
		}
		return nil, fmt.Errorf("rpc %s: %s", method, decoded.Error.Message)
	}
	return decoded.Result, nil
}
