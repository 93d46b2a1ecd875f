package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testReceiver = "HFSjX2pJxVzETcrCqX4K8mMvuRjDvJWnCXaTestWallet"
	testSender   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM1"
	testTxID     = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia1"
)

// rpcServer returns a test server answering getTransaction with the given
// result payload, or a JSON-RPC null when result is empty.
func rpcServer(t *testing.T, result string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.NotEmpty(t, req.ID)

		if result == "" {
			result = "null"
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%q,"result":%s}`, req.ID, result)
	}))
}

// txResult builds a getTransaction result where the receiver's balance moves
// from pre to post lamports.
func txResult(pre, post uint64) string {
	return fmt.Sprintf(`{
		"meta": {"err": null, "preBalances": [10000000000, %d], "postBalances": [8999995000, %d]},
		"transaction": {"message": {"accountKeys": [%q, %q]}}
	}`, pre, post, testSender, testReceiver)
}

func TestVerifyTransactionExactAmount(t *testing.T) {
	srv := rpcServer(t, txResult(0, 1_000_000_000))
	defer srv.Close()

	res, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1_000_000_000, testReceiver)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), res.Lamports)
	assert.Equal(t, testSender, res.Sender)
}

func TestVerifyTransactionOverpaymentAccepted(t *testing.T) {
	srv := rpcServer(t, txResult(500, 1_200_000_500))
	defer srv.Close()

	res, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1_000_000_000, testReceiver)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_200_000_000), res.Lamports)
}

func TestVerifyTransactionOneLamportShortRejected(t *testing.T) {
	srv := rpcServer(t, txResult(0, 999_999_999))
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1_000_000_000, testReceiver)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.False(t, IsTransient(err))
}

func TestVerifyTransactionNotFound(t *testing.T) {
	srv := rpcServer(t, "null")
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1, testReceiver)
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestVerifyTransactionWrongReceiver(t *testing.T) {
	// Correct amount moved, but to some other account entirely.
	result := fmt.Sprintf(`{
		"meta": {"err": null, "preBalances": [10000000000, 0], "postBalances": [8999995000, 1000000000]},
		"transaction": {"message": {"accountKeys": [%q, "SomeOtherAccount11111111111111111111111111111"]}}
	}`, testSender)
	srv := rpcServer(t, result)
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1_000_000_000, testReceiver)
	assert.ErrorIs(t, err, ErrReceiverMismatch)
}

func TestVerifyTransactionReceiverGainedNothing(t *testing.T) {
	srv := rpcServer(t, txResult(5_000_000, 5_000_000))
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1, testReceiver)
	assert.ErrorIs(t, err, ErrReceiverMismatch)
}

func TestVerifyTransactionFailedOnChain(t *testing.T) {
	result := fmt.Sprintf(`{
		"meta": {"err": {"InstructionError": [0, "Custom"]}, "preBalances": [1, 0], "postBalances": [0, 1]},
		"transaction": {"message": {"accountKeys": [%q, %q]}}
	}`, testSender, testReceiver)
	srv := rpcServer(t, result)
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1, testReceiver)
	assert.ErrorIs(t, err, ErrTxFailed)
}

func TestVerifyTransactionServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "node overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1, testReceiver)
	require.Error(t, err)
	assert.True(t, IsTransient(err), "5xx from the node must surface as transient, got: %v", err)
}

func TestVerifyTransactionRPCErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","error":{"code":-32005,"message":"node is behind"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1, testReceiver)
	assert.True(t, IsTransient(err))
}

func TestVerifyTransactionUnreachableNodeIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := NewClient(srv.URL).VerifyTransaction(context.Background(), testTxID, 1, testReceiver)
	assert.True(t, IsTransient(err))
}

func TestGetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getBalance", req.Method)
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%q,"result":{"context":{"slot":123},"value":2500000000}}`, req.ID)
	}))
	defer srv.Close()

	balance, err := NewClient(srv.URL).GetBalance(context.Background(), testReceiver)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), balance)
}
