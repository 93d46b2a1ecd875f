// Package solana is a read-only JSON-RPC client for the Solana ledger,
// covering only what payment verification needs: getTransaction and
// getBalance against a finalized commitment.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Sentinel verification failures. These are definitive rejections: retrying
// with the same inputs will not change the answer.
var (
	ErrTxNotFound       = errors.New("transaction not found on the ledger")
	ErrTxFailed         = errors.New("transaction failed on-chain")
	ErrReceiverMismatch = errors.New("no transfer to the expected receiver in this transaction")
	ErrAmountMismatch   = errors.New("transferred amount below the expected amount")
)

// TransientError marks an upstream problem (timeout, node error, 5xx) that
// says nothing about the transaction itself. Callers may retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient ledger error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable upstream failure rather
// than a definitive rejection.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// VerifyResult is returned on successful verification for audit logging.
type VerifyResult struct {
	Lamports uint64 // amount actually received by the configured wallet
	Sender   string // fee payer of the transaction
}

// Client talks to a single Solana RPC endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the given RPC endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC request. Network and node-side failures come
// back as TransientError; a null result is returned as-is for the caller to
// interpret.
func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransientError{Err: fmt.Errorf("rpc status %d: %s", resp.StatusCode, string(body))}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decoding rpc response: %w", err)}
	}
	if rpcResp.Error != nil {
		return nil, &TransientError{Err: fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)}
	}
	return rpcResp.Result, nil
}

// getTransaction response, reduced to the fields verification needs.
type transactionResult struct {
	Meta *struct {
		Err          interface{} `json:"err"`
		PreBalances  []uint64    `json:"preBalances"`
		PostBalances []uint64    `json:"postBalances"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// VerifyTransaction checks that txID is a finalized on-chain transaction that
// transferred at least expectedLamports to receiver. The amount is measured
// as the receiver's balance delta, so network fees paid by the sender never
// distort the comparison. Underpayment is rejected; overpayment is accepted
// in full.
//
// The call is side-effect free and may be retried; transient upstream
// failures are reported as TransientError, never as a rejection.
func (c *Client) VerifyTransaction(ctx context.Context, txID string, expectedLamports uint64, receiver string) (VerifyResult, error) {
	params := []interface{}{
		txID,
		map[string]interface{}{
			"commitment":                     "finalized",
			"encoding":                       "json",
			"maxSupportedTransactionVersion": 0,
		},
	}

	raw, err := c.call(ctx, "getTransaction", params)
	if err != nil {
		return VerifyResult{}, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return VerifyResult{}, ErrTxNotFound
	}

	var tx transactionResult
	if err := json.Unmarshal(raw, &tx); err != nil {
		return VerifyResult{}, &TransientError{Err: fmt.Errorf("decoding transaction %s: %w", txID, err)}
	}
	if tx.Meta == nil {
		return VerifyResult{}, ErrTxNotFound
	}
	if tx.Meta.Err != nil {
		log.Printf("VerifyTransaction: transaction %s failed on-chain: %v", txID, tx.Meta.Err)
		return VerifyResult{}, ErrTxFailed
	}

	keys := tx.Transaction.Message.AccountKeys
	receiverIdx := -1
	for i, key := range keys {
		if key == receiver {
			receiverIdx = i
			break
		}
	}
	if receiverIdx < 0 ||
		receiverIdx >= len(tx.Meta.PreBalances) ||
		receiverIdx >= len(tx.Meta.PostBalances) {
		return VerifyResult{}, ErrReceiverMismatch
	}

	pre := tx.Meta.PreBalances[receiverIdx]
	post := tx.Meta.PostBalances[receiverIdx]
	if post <= pre {
		// The receiver appears in the transaction but gained nothing.
		return VerifyResult{}, ErrReceiverMismatch
	}
	received := post - pre

	if received < expectedLamports {
		return VerifyResult{}, fmt.Errorf("%w: got %d lamports, expected %d", ErrAmountMismatch, received, expectedLamports)
	}

	sender := ""
	if len(keys) > 0 {
		sender = keys[0]
	}
	log.Printf("VerifyTransaction: %s verified, %d lamports from %s", txID, received, sender)
	return VerifyResult{Lamports: received, Sender: sender}, nil
}

// GetBalance returns the lamport balance of an account at finalized
// commitment.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	params := []interface{}{
		address,
		map[string]interface{}{"commitment": "finalized"},
	}
	raw, err := c.call(ctx, "getBalance", params)
	if err != nil {
		return 0, err
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, &TransientError{Err: fmt.Errorf("decoding balance for %s: %w", address, err)}
	}
	return result.Value, nil
}
