package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// RPCClient is the subset of the Sui JSON-RPC API the engine needs.
// This allows us to mock the RPC layer in tests without hitting real nodes.
type RPCClient interface {
	GetTransactionBlock(ctx context.Context, digest string) (*RawTransaction, error)
	GetObject(ctx context.Context, objectID string) (*EnrichedObject, error)
	Ping(ctx context.Context) error
}

// jsonRPCClient talks JSON-RPC 2.0 over HTTP to a fullnode.
type jsonRPCClient struct {
	url        string
	httpClient *http.Client
	idCounter  uint64
}

// NewRPCClient creates an RPCClient for the given fullnode URL.
// For providers that require API keys, include the key in the URL.
func NewRPCClient(rpcURL string) RPCClient {
	return &jsonRPCClient{
		url:        rpcURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var transactionBlockOptions = map[string]bool{
	"showInput":          true,
	"showEffects":        true,
	"showObjectChanges":  true,
	"showBalanceChanges": true,
	"showEvents":         false,
}

var objectOptions = map[string]bool{
	"showType":    true,
	"showContent": true,
	"showDisplay": true,
}

func (c *jsonRPCClient) GetTransactionBlock(ctx context.Context, digest string) (*RawTransaction, error) {
	var tx RawTransaction
	if err := c.call(ctx, "sui_getTransactionBlock", []any{digest, transactionBlockOptions}, &tx); err != nil {
		return nil, err
	}
	if tx.Digest == "" {
		tx.Digest = digest
	}
	return &tx, nil
}

// rpcObjectResponse is the sui_getObject result envelope.
type rpcObjectResponse struct {
	Data *struct {
		ObjectID string `json:"objectId"`
		Version  string `json:"version"`
		Type     string `json:"type"`
		Display  *struct {
			Data map[string]any `json:"data"`
		} `json:"display"`
		Content *struct {
			DataType string         `json:"dataType"`
			Type     string         `json:"type"`
			Fields   map[string]any `json:"fields"`
		} `json:"content"`
	} `json:"data"`
	Error *struct {
		Code     string `json:"code"`
		ObjectID string `json:"object_id"`
	} `json:"error"`
}

func (c *jsonRPCClient) GetObject(ctx context.Context, objectID string) (*EnrichedObject, error) {
	var resp rpcObjectResponse
	if err := c.call(ctx, "sui_getObject", []any{objectID, objectOptions}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("object %s not found: %s", objectID, resp.Error.Code)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("object %s not found: empty response", objectID)
	}

	obj := &EnrichedObject{
		ObjectID: resp.Data.ObjectID,
		Type:     resp.Data.Type,
		Version:  resp.Data.Version,
	}
	if resp.Data.Display != nil && len(resp.Data.Display.Data) > 0 {
		obj.Display = make(map[string]string, len(resp.Data.Display.Data))
		for k, v := range resp.Data.Display.Data {
			if s, ok := v.(string); ok {
				obj.Display[k] = s
			} else if v != nil {
				obj.Display[k] = fmt.Sprint(v)
			}
		}
	}
	if resp.Data.Content != nil {
		obj.Fields = resp.Data.Content.Fields
		if obj.Type == "" {
			obj.Type = resp.Data.Content.Type
		}
	}
	return obj, nil
}

func (c *jsonRPCClient) Ping(ctx context.Context) error {
	var chainID string
	return c.call(ctx, "sui_getChainIdentifier", []any{}, &chainID)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *jsonRPCClient) call(ctx context.Context, method string, params []any, result any) error {
	id := atomic.AddUint64(&c.idCounter, 1)
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rpc status 429: too many requests")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return err
	}
	if decoded.Error != nil {
		return fmt.Errorf("rpc error %d: %s", decoded.Error.Code, strings.TrimSpace(decoded.Error.Message))
	}
	if result == nil {
		return nil
	}
	if len(decoded.Result) == 0 || string(decoded.Result) == "null" {
		return errors.New("rpc result is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(decoded.Result))
	dec.UseNumber()
	return dec.Decode(result)
}
