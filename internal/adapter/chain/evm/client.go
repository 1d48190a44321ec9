package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"campus-token-ledger/config"
	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// nativeTransferGas is the intrinsic gas of a plain value transfer.
const nativeTransferGas = 21000

// Node is the JSON-RPC surface the client uses. *ethclient.Client satisfies it.
type Node interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// tokenContract is satisfied by *bind.BoundContract.
type tokenContract interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// Options tunes the client.
type Options struct {
	TokenAddress       common.Address
	ChainID            *big.Int
	GasLimit           uint64
	ReceiptMaxAttempts int
	ReceiptInterval    time.Duration
}

// Client implements ports.TokenChain against an ERC-20 style token contract.
type Client struct {
	node    Node
	token   tokenContract
	opts    Options
	log     zerolog.Logger
	signers sync.Map // common.Address -> *sync.Mutex
	close   func()
}

// New creates a Client over an existing node connection and bound contract.
func New(node Node, token tokenContract, opts Options, log zerolog.Logger) *Client {
	if opts.ReceiptMaxAttempts < 1 {
		opts.ReceiptMaxAttempts = 1
	}
	return &Client{node: node, token: token, opts: opts, log: log, close: func() {}}
}

// Dial connects to the configured RPC endpoint and binds the token contract.
func Dial(ctx context.Context, cfg config.ChainConfig, log zerolog.Logger) (*Client, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}

	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing chain node: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		if chainID, err = ec.ChainID(ctx); err != nil {
			ec.Close()
			return nil, fmt.Errorf("fetching chain id: %w", err)
		}
	}

	tokenAddr := common.HexToAddress(cfg.TokenAddress)
	bound := bind.NewBoundContract(tokenAddr, tokenABI, ec, ec, ec)

	log.Info().
		Str("rpc_url", cfg.RPCURL).
		Str("token", tokenAddr.Hex()).
		Str("chain_id", chainID.String()).
		Msg("Chain client connected")

	c := New(ec, bound, Options{
		TokenAddress:       tokenAddr,
		ChainID:            chainID,
		GasLimit:           cfg.GasLimit,
		ReceiptMaxAttempts: cfg.ReceiptMaxAttempts,
		ReceiptInterval:    cfg.ReceiptInterval,
	}, log)
	c.close = ec.Close
	return c, nil
}

// Close releases the node connection.
func (c *Client) Close() {
	c.close()
}

// ---- Reads ----

// ReadDecimals fetches decimals(), falling back to 18 on any failure.
func (c *Client) ReadDecimals(ctx context.Context) uint8 {
	v, err := c.call(ctx, "decimals")
	if err != nil {
		c.log.Warn().Err(err).Msg("decimals() failed, assuming 18")
		return domain.DefaultTokenDecimals
	}
	d, ok := v.(uint8)
	if !ok {
		c.log.Warn().Type("type", v).Msg("decimals() returned unexpected type, assuming 18")
		return domain.DefaultTokenDecimals
	}
	return d
}

// ReadBalance returns the token balance of address in human units.
func (c *Client) ReadBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("invalid address %q", address)
	}
	dec := c.ReadDecimals(ctx)
	v, err := c.callBig(ctx, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, err
	}
	return domain.FromBaseUnits(v, dec), nil
}

// ReadAllowance returns how much spender may move out of owner, in human units.
func (c *Client) ReadAllowance(ctx context.Context, owner, spender string) (decimal.Decimal, error) {
	if !common.IsHexAddress(owner) || !common.IsHexAddress(spender) {
		return decimal.Zero, fmt.Errorf("invalid address pair %q/%q", owner, spender)
	}
	dec := c.ReadDecimals(ctx)
	v, err := c.callBig(ctx, "allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return decimal.Zero, err
	}
	return domain.FromBaseUnits(v, dec), nil
}

// ReadNativeBalance returns the gas-coin balance of address in wei.
func (c *Client) ReadNativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	start := time.Now()
	v, err := c.node.BalanceAt(ctx, common.HexToAddress(address), nil)
	metrics.RecordChainCall("balanceAt", outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("native balance of %s: %w", address, err)
	}
	return v, nil
}

func (c *Client) call(ctx context.Context, method string, params ...interface{}) (interface{}, error) {
	start := time.Now()
	var out []interface{}
	err := c.token.Call(&bind.CallOpts{Context: ctx}, &out, method, params...)
	metrics.RecordChainCall(method, outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s call: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s call: empty result", method)
	}
	return out[0], nil
}

func (c *Client) callBig(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	v, err := c.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s call: unexpected result type %T", method, v)
	}
	return n, nil
}

// ---- Writes ----

// Transfer sends amount from key's account to to.
func (c *Client) Transfer(ctx context.Context, key *ecdsa.PrivateKey, to string, amount decimal.Decimal) domain.TransferResult {
	if !common.IsHexAddress(to) {
		return submitFailed("transfer", fmt.Errorf("invalid recipient %q", to))
	}
	value, err := domain.ToBaseUnits(amount, c.ReadDecimals(ctx))
	if err != nil {
		return submitFailed("transfer", err)
	}
	return c.transact(ctx, "transfer", key, common.HexToAddress(to), value)
}

// Approve lets spender move amount out of the owner's account.
func (c *Client) Approve(ctx context.Context, ownerKey *ecdsa.PrivateKey, spender string, amount decimal.Decimal) domain.TransferResult {
	if !common.IsHexAddress(spender) {
		return submitFailed("approve", fmt.Errorf("invalid spender %q", spender))
	}
	value, err := domain.ToBaseUnits(amount, c.ReadDecimals(ctx))
	if err != nil {
		return submitFailed("approve", err)
	}
	return c.transact(ctx, "approve", ownerKey, common.HexToAddress(spender), value)
}

// TransferFrom moves amount from owner to to, spending the operator's allowance.
func (c *Client) TransferFrom(ctx context.Context, operatorKey *ecdsa.PrivateKey, owner, to string, amount decimal.Decimal) domain.TransferResult {
	if !common.IsHexAddress(owner) || !common.IsHexAddress(to) {
		return submitFailed("transferFrom", fmt.Errorf("invalid address pair %q/%q", owner, to))
	}
	value, err := domain.ToBaseUnits(amount, c.ReadDecimals(ctx))
	if err != nil {
		return submitFailed("transferFrom", err)
	}
	return c.transact(ctx, "transferFrom", operatorKey, common.HexToAddress(owner), common.HexToAddress(to), value)
}

// SendNative transfers wei of the gas coin, used to top up custodial wallets.
func (c *Client) SendNative(ctx context.Context, key *ecdsa.PrivateKey, to string, wei *big.Int) domain.TransferResult {
	if !common.IsHexAddress(to) {
		return submitFailed("sendNative", fmt.Errorf("invalid recipient %q", to))
	}
	if wei == nil || wei.Sign() <= 0 {
		return submitFailed("sendNative", errors.New("amount must be positive"))
	}

	start := time.Now()
	res := c.submitAndWait(ctx, "sendNative", key, func(from common.Address) (*types.Transaction, error) {
		nonce, err := c.node.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, fmt.Errorf("pending nonce: %w", err)
		}
		gasPrice, err := c.node.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("gas price: %w", err)
		}
		toAddr := common.HexToAddress(to)
		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &toAddr,
			Value:    wei,
			Gas:      nativeTransferGas,
			GasPrice: gasPrice,
		})
		signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.opts.ChainID), key)
		if err != nil {
			return nil, fmt.Errorf("sign: %w", err)
		}
		if err := c.node.SendTransaction(ctx, signed); err != nil {
			return nil, err
		}
		return signed, nil
	})
	metrics.RecordChainCall("sendNative", string(res.Outcome), time.Since(start).Seconds())
	return res
}

func (c *Client) transact(ctx context.Context, method string, key *ecdsa.PrivateKey, params ...interface{}) domain.TransferResult {
	start := time.Now()
	res := c.submitAndWait(ctx, method, key, func(_ common.Address) (*types.Transaction, error) {
		opts, err := bind.NewKeyedTransactorWithChainID(key, c.opts.ChainID)
		if err != nil {
			return nil, fmt.Errorf("transactor: %w", err)
		}
		opts.Context = ctx
		opts.GasLimit = c.opts.GasLimit
		return c.token.Transact(opts, method, params...)
	})
	metrics.RecordChainCall(method, string(res.Outcome), time.Since(start).Seconds())
	return res
}

// submitAndWait sends one transaction and polls for its receipt.
// Submission is serialized per signer so pending nonces are not handed out twice.
func (c *Client) submitAndWait(ctx context.Context, method string, key *ecdsa.PrivateKey, send func(from common.Address) (*types.Transaction, error)) domain.TransferResult {
	if key == nil {
		return submitFailed(method, errors.New("no signing key"))
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	mu := c.signerLock(from)
	mu.Lock()
	tx, err := send(from)
	mu.Unlock()
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("from", from.Hex()).Msg("Transaction submit failed")
		return submitFailed(method, err)
	}

	hash := tx.Hash().Hex()
	log := c.log.With().Str("method", method).Str("tx_hash", hash).Logger()
	log.Info().Str("from", from.Hex()).Msg("Transaction submitted")

	receipt, err := c.AwaitReceipt(ctx, hash)
	switch {
	case err != nil || receipt == nil:
		log.Warn().Err(err).Msg("Transaction not confirmed in time")
		return domain.TransferResult{
			TxHash:  hash,
			Outcome: domain.OutcomeTimeout,
			Message: fmt.Sprintf("%s not confirmed in time; transaction %s may still be mined", method, hash),
		}
	case !receipt.Succeeded():
		log.Warn().Uint64("block", receipt.BlockNumber).Msg("Transaction reverted")
		return domain.TransferResult{
			TxHash:  hash,
			Outcome: domain.OutcomeReverted,
			Message: fmt.Sprintf("%s reverted in block %d", method, receipt.BlockNumber),
		}
	}

	log.Info().Uint64("block", receipt.BlockNumber).Msg("Transaction confirmed")
	return domain.TransferResult{
		Success: true,
		TxHash:  hash,
		Outcome: domain.OutcomeConfirmed,
		Message: method + " confirmed",
	}
}

func (c *Client) signerLock(addr common.Address) *sync.Mutex {
	mu, _ := c.signers.LoadOrStore(addr, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func submitFailed(method string, err error) domain.TransferResult {
	return domain.TransferResult{
		Outcome: domain.OutcomeSubmitFailed,
		Message: fmt.Sprintf("%s submit failed: %v", method, err),
	}
}

// ---- Receipts ----

// AwaitReceipt polls every ReceiptInterval, at most ReceiptMaxAttempts times.
// Returns nil, nil when the receipt never shows up.
func (c *Client) AwaitReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	for attempt := 1; ; attempt++ {
		r, err := c.FetchReceipt(ctx, txHash)
		if err != nil {
			c.log.Debug().Err(err).Str("tx_hash", txHash).Int("attempt", attempt).Msg("receipt poll failed")
		} else if r != nil {
			return r, nil
		}
		if attempt >= c.opts.ReceiptMaxAttempts {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.opts.ReceiptInterval):
		}
	}
}

// FetchReceipt fetches a receipt once. Returns nil, nil when the node does not know it yet.
func (c *Client) FetchReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	hash := common.HexToHash(txHash)
	r, err := c.node.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch receipt %s: %w", txHash, err)
	}
	return c.toReceipt(hash, r), nil
}

// toReceipt keeps only Transfer events emitted by the configured token.
func (c *Client) toReceipt(hash common.Hash, r *types.Receipt) *domain.Receipt {
	out := &domain.Receipt{TxHash: hash.Hex(), Status: r.Status}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}

	transferID := tokenABI.Events["Transfer"].ID
	for _, lg := range r.Logs {
		if lg == nil || lg.Address != c.opts.TokenAddress || len(lg.Topics) != 3 || lg.Topics[0] != transferID {
			continue
		}
		vals, err := tokenABI.Unpack("Transfer", lg.Data)
		if err != nil || len(vals) != 1 {
			c.log.Warn().Err(err).Str("tx_hash", out.TxHash).Uint("log_index", lg.Index).Msg("undecodable Transfer log")
			continue
		}
		value, ok := vals[0].(*big.Int)
		if !ok {
			continue
		}
		out.Transfers = append(out.Transfers, domain.TransferEvent{
			From:  common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
			To:    common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
			Value: value,
		})
	}
	return out
}

// ---- Health ----

// Ping implements ports.HealthChecker.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.node.BlockNumber(ctx)
	return err
}

// Name returns the dependency name.
func (c *Client) Name() string {
	return "chain"
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
