package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"campus-token-ledger/internal/core/domain"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Well-known development keys.
const (
	hardhatTreasuryKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80" // 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
	hardhatBuyerKey    = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a" // 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC
	hardhatRelayerKey  = "47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a" // 0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65
)

func testKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(hexKey)
	require.NoError(t, err)
	return key
}

// --- In-memory database ---

type memState struct {
	wallets     map[uuid.UUID]domain.Wallet // by owner
	logs        []domain.TransactionLog
	carts       map[uuid.UUID][]domain.CartLine // by owner
	stock       map[uuid.UUID]int
	orders      map[string]domain.Order // by tx hash
	settlements map[uuid.UUID]domain.Settlement
}

func (s *memState) clone() *memState {
	c := &memState{
		wallets:     make(map[uuid.UUID]domain.Wallet, len(s.wallets)),
		logs:        append([]domain.TransactionLog(nil), s.logs...),
		carts:       make(map[uuid.UUID][]domain.CartLine, len(s.carts)),
		stock:       make(map[uuid.UUID]int, len(s.stock)),
		orders:      make(map[string]domain.Order, len(s.orders)),
		settlements: make(map[uuid.UUID]domain.Settlement, len(s.settlements)),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = append([]domain.CartLine(nil), v...)
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.settlements {
		c.settlements[k] = v
	}
	return c
}

// memStore is a single-writer database. An open transaction holds the lock and
// works on a copy that replaces the state on Commit.
type memStore struct {
	mu         sync.Mutex
	state      *memState
	failCommit int // number of upcoming commits that fail
}

func newMemStore() *memStore {
	return &memStore{state: (&memState{}).clone()}
}

func (s *memStore) Begin(_ context.Context) (pgx.Tx, error) {
	s.mu.Lock()
	return &memTx{store: s, state: s.state.clone()}, nil
}

func (s *memStore) read(fn func(st *memState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

type memTx struct {
	pgx.Tx
	store *memStore
	state *memState
	done  bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	defer t.store.mu.Unlock()
	if t.store.failCommit > 0 {
		t.store.failCommit--
		return errors.New("connection reset by peer")
	}
	t.store.state = t.state
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func txState(tx pgx.Tx) *memState {
	return tx.(*memTx).state
}

type memWallets struct{ *memStore }

func (r memWallets) Create(_ context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.state.wallets {
		if existing.OwnerID == w.OwnerID || strings.EqualFold(existing.Address, w.Address) {
			return fmt.Errorf("insert wallet: %w", domain.ErrDuplicate)
		}
	}
	r.state.wallets[w.OwnerID] = *w
	return nil
}

func (r memWallets) GetByOwnerID(_ context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.state.wallets[ownerID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r memWallets) GetByAddress(_ context.Context, address string) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.state.wallets {
		if strings.EqualFold(w.Address, address) {
			return &w, nil
		}
	}
	return nil, nil
}

func (r memWallets) UpdateBalance(_ context.Context, address string, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for owner, w := range r.state.wallets {
		if strings.EqualFold(w.Address, address) {
			w.Balance = balance
			r.state.wallets[owner] = w
		}
	}
	return nil
}

func (r memWallets) AdjustBalance(_ context.Context, tx pgx.Tx, ownerID uuid.UUID, delta decimal.Decimal) error {
	st := txState(tx)
	w, ok := st.wallets[ownerID]
	if !ok {
		return fmt.Errorf("no wallet for owner %s", ownerID)
	}
	w.Balance = w.Balance.Add(delta)
	st.wallets[ownerID] = w
	return nil
}

type memLedger struct{ *memStore }

func (r memLedger) Append(_ context.Context, tx pgx.Tx, entry *domain.TransactionLog) error {
	st := txState(tx)
	for _, l := range st.logs {
		if l.TxHash == entry.TxHash && l.OwnerID == entry.OwnerID && l.Kind == entry.Kind {
			return nil
		}
	}
	st.logs = append(st.logs, *entry)
	return nil
}

func (r memLedger) ListByOwner(_ context.Context, ownerID uuid.UUID, limit int) ([]domain.TransactionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TransactionLog
	for i := len(r.state.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.state.logs[i].OwnerID == ownerID {
			out = append(out, r.state.logs[i])
		}
	}
	return out, nil
}

type memCarts struct{ *memStore }

func (r memCarts) ListLines(_ context.Context, ownerID uuid.UUID) ([]domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CartLine(nil), r.state.carts[ownerID]...), nil
}

func (r memCarts) DeleteItems(_ context.Context, tx pgx.Tx, ownerID uuid.UUID, itemIDs []uuid.UUID) error {
	st := txState(tx)
	drop := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = true
	}
	var kept []domain.CartLine
	for _, l := range st.carts[ownerID] {
		if !drop[l.CartItemID] {
			kept = append(kept, l)
		}
	}
	st.carts[ownerID] = kept
	return nil
}

type memProducts struct{ *memStore }

func (r memProducts) DecrementStock(_ context.Context, tx pgx.Tx, productID uuid.UUID, qty int) (bool, error) {
	st := txState(tx)
	have, ok := st.stock[productID]
	if !ok || have < qty {
		return false, nil
	}
	st.stock[productID] = have - qty
	return true, nil
}

type memOrders struct{ *memStore }

func (r memOrders) Create(_ context.Context, tx pgx.Tx, order *domain.Order) (bool, error) {
	st := txState(tx)
	if _, ok := st.orders[order.TxHash]; ok {
		return false, nil
	}
	st.orders[order.TxHash] = *order
	return true, nil
}

func (r memOrders) GetByTxHash(_ context.Context, txHash string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.state.orders[txHash]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

type memSettlements struct{ *memStore }

func (r memSettlements) Create(_ context.Context, s *domain.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.state.settlements {
		if existing.TxHash == s.TxHash {
			return fmt.Errorf("insert settlement: %w", domain.ErrDuplicate)
		}
	}
	r.state.settlements[s.ID] = *s
	return nil
}

func (r memSettlements) GetByTxHash(_ context.Context, txHash string) (*domain.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.state.settlements {
		if s.TxHash == txHash {
			return &s, nil
		}
	}
	return nil, nil
}

func (r memSettlements) MarkCommitted(_ context.Context, tx pgx.Tx, id uuid.UUID) error {
	st := txState(tx)
	s, ok := st.settlements[id]
	if !ok || s.Status != domain.SettlementStatusSettled {
		return fmt.Errorf("settlement %s is not pending", id)
	}
	s.Status = domain.SettlementStatusCommitted
	st.settlements[id] = s
	return nil
}

func (r memSettlements) MarkNeedsReview(_ context.Context, id uuid.UUID, reason string) error {
	return r.update(id, func(s *domain.Settlement) {
		s.Status = domain.SettlementStatusNeedsReview
		s.LastError = &reason
	})
}

func (r memSettlements) RecordFailure(_ context.Context, id uuid.UUID, reason string) error {
	return r.update(id, func(s *domain.Settlement) {
		s.Attempts++
		s.LastError = &reason
	})
}

func (r memSettlements) ListSettled(_ context.Context, cutoff time.Time, limit int) ([]domain.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Settlement
	for _, s := range r.state.settlements {
		if s.Status == domain.SettlementStatusSettled && s.UpdatedAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memSettlements) update(id uuid.UUID, fn func(s *domain.Settlement)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.state.settlements[id]
	if !ok {
		return fmt.Errorf("settlement %s not found", id)
	}
	fn(&s)
	s.UpdatedAt = time.Now().UTC()
	r.state.settlements[id] = s
	return nil
}

// --- In-memory chain ---

// memChain is an ERC-20 ledger plus native balances. Transfers that would
// overdraw revert, like the real contract.
type memChain struct {
	mu         sync.Mutex
	balances   map[string]decimal.Decimal
	allowances map[string]decimal.Decimal
	native     map[string]*big.Int
	receipts   map[string]*domain.Receipt
	seq        int

	readErr          error // ReadBalance fails while set
	failTransferFrom bool
	approveCalls     int
	topUps           int
}

func newMemChain() *memChain {
	return &memChain{
		balances:   make(map[string]decimal.Decimal),
		allowances: make(map[string]decimal.Decimal),
		native:     make(map[string]*big.Int),
		receipts:   make(map[string]*domain.Receipt),
	}
}

func addressOf(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func (c *memChain) mint(address string, amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := strings.ToLower(address)
	c.balances[k] = c.balances[k].Add(amount)
}

func (c *memChain) balanceOf(address string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[strings.ToLower(address)]
}

func (c *memChain) setReadErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

func (c *memChain) ReadBalance(_ context.Context, address string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return decimal.Zero, c.readErr
	}
	return c.balances[strings.ToLower(address)], nil
}

func (c *memChain) ReadDecimals(_ context.Context) uint8 {
	return domain.DefaultTokenDecimals
}

func (c *memChain) ReadAllowance(_ context.Context, owner, spender string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowances[allowanceKey(owner, spender)], nil
}

func (c *memChain) ReadNativeBalance(_ context.Context, address string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.native[strings.ToLower(address)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (c *memChain) Transfer(_ context.Context, key *ecdsa.PrivateKey, to string, amount decimal.Decimal) domain.TransferResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(addressOf(key), to, amount)
}

func (c *memChain) Approve(_ context.Context, ownerKey *ecdsa.PrivateKey, spender string, amount decimal.Decimal) domain.TransferResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approveCalls++
	c.allowances[allowanceKey(addressOf(ownerKey), spender)] = amount
	hash := c.nextHash()
	c.receipts[hash] = &domain.Receipt{TxHash: hash, Status: 1, BlockNumber: uint64(c.seq)}
	return domain.TransferResult{Success: true, TxHash: hash, Outcome: domain.OutcomeConfirmed}
}

func (c *memChain) TransferFrom(_ context.Context, operatorKey *ecdsa.PrivateKey, owner, to string, amount decimal.Decimal) domain.TransferResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := allowanceKey(owner, addressOf(operatorKey))
	if c.failTransferFrom || c.allowances[key].LessThan(amount) {
		hash := c.nextHash()
		c.receipts[hash] = &domain.Receipt{TxHash: hash, Status: 0, BlockNumber: uint64(c.seq)}
		return domain.TransferResult{TxHash: hash, Outcome: domain.OutcomeReverted, Message: "transferFrom reverted"}
	}
	res := c.move(owner, to, amount)
	if res.Success {
		c.allowances[key] = c.allowances[key].Sub(amount)
	}
	return res
}

func (c *memChain) SendNative(_ context.Context, _ *ecdsa.PrivateKey, to string, wei *big.Int) domain.TransferResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topUps++
	k := strings.ToLower(to)
	if c.native[k] == nil {
		c.native[k] = big.NewInt(0)
	}
	c.native[k].Add(c.native[k], wei)
	hash := c.nextHash()
	c.receipts[hash] = &domain.Receipt{TxHash: hash, Status: 1, BlockNumber: uint64(c.seq)}
	return domain.TransferResult{Success: true, TxHash: hash, Outcome: domain.OutcomeConfirmed}
}

func (c *memChain) AwaitReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	return c.FetchReceipt(ctx, txHash)
}

func (c *memChain) FetchReceipt(_ context.Context, txHash string) (*domain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipts[strings.ToLower(txHash)], nil
}

// move must be called with mu held.
func (c *memChain) move(from, to string, amount decimal.Decimal) domain.TransferResult {
	hash := c.nextHash()
	fk, tk := strings.ToLower(from), strings.ToLower(to)
	if c.balances[fk].LessThan(amount) {
		c.receipts[hash] = &domain.Receipt{TxHash: hash, Status: 0, BlockNumber: uint64(c.seq)}
		return domain.TransferResult{TxHash: hash, Outcome: domain.OutcomeReverted, Message: "transfer amount exceeds balance"}
	}
	c.balances[fk] = c.balances[fk].Sub(amount)
	c.balances[tk] = c.balances[tk].Add(amount)

	value, _ := domain.ToBaseUnits(amount, domain.DefaultTokenDecimals)
	c.receipts[hash] = &domain.Receipt{
		TxHash:      hash,
		Status:      1,
		BlockNumber: uint64(c.seq),
		Transfers:   []domain.TransferEvent{{From: fk, To: tk, Value: value}},
	}
	return domain.TransferResult{Success: true, TxHash: hash, Outcome: domain.OutcomeConfirmed}
}

func (c *memChain) nextHash() string {
	c.seq++
	return fmt.Sprintf("0x%064x", c.seq)
}

func allowanceKey(owner, spender string) string {
	return strings.ToLower(owner) + "|" + strings.ToLower(spender)
}

// --- Event sink ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
