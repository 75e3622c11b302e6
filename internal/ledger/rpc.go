package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Client wraps the cluster JSON-RPC client.
type Client struct {
	rpc           *rpc.Client
	endpoint      string
	skipPreflight bool
}

// Ensure Client implements Ledger.
var _ Ledger = (*Client)(nil)

// New creates a new RPC-backed ledger client.
func New(endpoint string, skipPreflight bool) *Client {
	return &Client{
		rpc:           rpc.New(endpoint),
		endpoint:      endpoint,
		skipPreflight: skipPreflight,
	}
}

// Endpoint returns the RPC URL this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// LatestBlockhash returns the most recent blockhash at confirmed commitment.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("getting latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// GetAccount fetches a single account.
func (c *Client) GetAccount(ctx context.Context, key solana.PublicKey) (*Account, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("getting account %s: %w", key, err)
	}
	if out.Value == nil {
		return nil, ErrAccountNotFound
	}
	return &Account{
		Owner:    out.Value.Owner,
		Lamports: out.Value.Lamports,
		Data:     out.Value.Data.GetBinary(),
	}, nil
}

// GetProgramAccounts lists accounts owned by program that match every filter.
func (c *Client) GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...Memcmp) ([]KeyedAccount, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	}
	for _, f := range filters {
		opts.Filters = append(opts.Filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{Offset: f.Offset, Bytes: solana.Base58(f.Bytes)},
		})
	}

	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, program, opts)
	if err != nil {
		return nil, fmt.Errorf("listing accounts of %s: %w", program, err)
	}

	accounts := make([]KeyedAccount, 0, len(out))
	for _, keyed := range out {
		if keyed == nil || keyed.Account == nil {
			continue
		}
		accounts = append(accounts, KeyedAccount{
			Key: keyed.Pubkey,
			Account: &Account{
				Owner:    keyed.Account.Owner,
				Lamports: keyed.Account.Lamports,
				Data:     keyed.Account.Data.GetBinary(),
			},
		})
	}
	return accounts, nil
}

// TokenAccountsByOwner lists owner's token accounts for mint.
func (c *Client) TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error) {
	out, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64, Commitment: rpc.CommitmentConfirmed},
	)
	if err != nil {
		return nil, fmt.Errorf("listing token accounts of %s: %w", owner, err)
	}

	accounts := make([]TokenAccount, 0, len(out.Value))
	for _, ta := range out.Value {
		var decoded token.Account
		if err := decoded.UnmarshalWithDecoder(bin.NewBinDecoder(ta.Account.Data.GetBinary())); err != nil {
			return nil, fmt.Errorf("decoding token account %s: %w", ta.Pubkey, err)
		}
		accounts = append(accounts, TokenAccount{
			Address: ta.Pubkey,
			Mint:    decoded.Mint,
			Owner:   decoded.Owner,
			Amount:  decoded.Amount,
		})
	}
	return accounts, nil
}

// TokenBalance returns the raw token amount held by account.
func (c *Client) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == -32602 {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("getting token balance of %s: %w", account, err)
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing token amount %q: %w", out.Value.Amount, err)
	}
	return amount, nil
}

// Send submits a signed transaction. Preflight runs at confirmed commitment
// unless disabled; a failed simulation comes back as *TransactionError.
func (c *Client) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       c.skipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, asTransactionError(err)
	}
	return sig, nil
}

// SignatureStatus looks up the status of a submitted signature.
func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting status of %s: %w", sig, err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return nil, nil
	}

	st := out.Value[0]
	status := &SignatureStatus{Confirmation: Confirmation(st.ConfirmationStatus)}
	if st.Err != nil {
		status.Err = &TransactionError{
			Message: "transaction failed: " + describeTransactionError(st.Err),
			Logs:    c.transactionLogs(ctx, sig),
		}
	}
	return status, nil
}

// transactionLogs fetches the program logs of a landed transaction. Errors are
// ignored since the logs only enrich an error that is already being reported.
func (c *Client) transactionLogs(ctx context.Context, sig solana.Signature) []string {
	maxVersion := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil || out == nil || out.Meta == nil {
		return nil
	}
	return out.Meta.LogMessages
}

// asTransactionError extracts simulation logs from a JSON-RPC error.
func asTransactionError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return fmt.Errorf("sending transaction: %w", err)
	}

	txErr := &TransactionError{Message: rpcErr.Message}
	if data, ok := rpcErr.Data.(map[string]any); ok {
		if logs, ok := data["logs"].([]any); ok {
			for _, line := range logs {
				if s, ok := line.(string); ok {
					txErr.Logs = append(txErr.Logs, s)
				}
			}
		}
	}
	return txErr
}

// describeTransactionError renders the err of a signature status. Custom
// program errors use the hex form of the cluster's simulation messages, such
// as "Error processing Instruction 0: custom program error: 0x23c".
func describeTransactionError(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Sprint(v)
	}
	pair, ok := m["InstructionError"].([]any)
	if !ok || len(pair) != 2 {
		return fmt.Sprint(v)
	}
	index, ok := asUint(pair[0])
	if !ok {
		return fmt.Sprint(v)
	}

	var detail string
	switch e := pair[1].(type) {
	case string:
		detail = e
	case map[string]any:
		if code, ok := asUint(e["Custom"]); ok {
			detail = fmt.Sprintf("custom program error: 0x%x", code)
		} else {
			detail = fmt.Sprint(e)
		}
	default:
		detail = fmt.Sprint(e)
	}
	return fmt.Sprintf("Error processing Instruction %d: %s", index, detail)
}

// asUint reads a JSON number decoded with or without UseNumber.
func asUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case uint64:
		return n, true
	}
	return 0, false
}
