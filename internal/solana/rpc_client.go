package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// RPCClient is the subset of chain RPC used by the security checks.
type RPCClient interface {
	// TokenLargestAccounts returns the 20 largest token accounts for a mint.
	TokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)
	// TokenSupply returns the total ui supply for a mint.
	TokenSupply(ctx context.Context, mint string) (float64, error)
	// RecentSignatures returns recent transaction signatures mentioning address.
	RecentSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error)
}

// HTTPClient is a JSON-RPC client over HTTP with bounded retries.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	requestID  atomic.Int64
}

var _ RPCClient = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets how many times a failed call is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.maxRetries = n }
}

// WithRetryDelay sets the initial delay between retries.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retryDelay = d }
}

// NewHTTPClient creates a JSON-RPC client for the given endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs one JSON-RPC call with retry and doubling delay.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	delay := c.retryDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = c.doCall(ctx, body, result)
		if lastErr == nil {
			return nil
		}
		// RPC-level errors are not transient, do not retry
		if _, ok := lastErr.(*rpcError); ok {
			return lastErr
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", method, c.maxRetries+1, lastErr)
}

func (c *HTTPClient) doCall(ctx context.Context, body []byte, result interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// TokenLargestAccounts implements RPCClient.
func (c *HTTPClient) TokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error) {
	var result struct {
		Value []struct {
			Address  string  `json:"address"`
			UIAmount float64 `json:"uiAmount"`
			Decimals int     `json:"decimals"`
		} `json:"value"`
	}

	err := c.call(ctx, "getTokenLargestAccounts",
		[]interface{}{mint, map[string]string{"commitment": "confirmed"}}, &result)
	if err != nil {
		return nil, err
	}

	accounts := make([]TokenAccountBalance, 0, len(result.Value))
	for _, v := range result.Value {
		accounts = append(accounts, TokenAccountBalance{
			Address:  v.Address,
			Amount:   v.UIAmount,
			Decimals: v.Decimals,
		})
	}
	return accounts, nil
}

// TokenSupply implements RPCClient.
func (c *HTTPClient) TokenSupply(ctx context.Context, mint string) (float64, error) {
	var result struct {
		Value struct {
			UIAmount float64 `json:"uiAmount"`
		} `json:"value"`
	}

	err := c.call(ctx, "getTokenSupply",
		[]interface{}{mint, map[string]string{"commitment": "confirmed"}}, &result)
	if err != nil {
		return 0, err
	}
	return result.Value.UIAmount, nil
}

// RecentSignatures implements RPCClient.
func (c *HTTPClient) RecentSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	var result []struct {
		Signature string      `json:"signature"`
		Slot      int64       `json:"slot"`
		BlockTime int64       `json:"blockTime"`
		Err       interface{} `json:"err"`
	}

	err := c.call(ctx, "getSignaturesForAddress",
		[]interface{}{address, map[string]interface{}{"limit": limit}}, &result)
	if err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, 0, len(result))
	for _, s := range result {
		sigs = append(sigs, SignatureInfo{
			Signature: s.Signature,
			Slot:      s.Slot,
			BlockTime: s.BlockTime,
			Err:       s.Err,
		})
	}
	return sigs, nil
}
