package node

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// RPC method names.
const (
	MethodSubscribe        = "chain.subscribe"
	MethodSetAddressFilter = "chain.set_address_filter"
	MethodChainHeight      = "chain.height"
	MethodAddressBalance   = "chain.address_balance"
	MethodBlockRange       = "chain.block_range"
	MethodBlockPushed      = "chain.block"
)

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// inbound is either a response (ID set) or a notification (Method set).
type inbound struct {
	ID     *uint64         `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// rangeItem is one response frame of a block_range stream.
type rangeItem struct {
	Block json.RawMessage `json:"block"`
	Done  bool            `json:"done"`
}

type wireBlock struct {
	Height       uint64            `json:"height"`
	Hash         string            `json:"hash"`
	PrevHash     string            `json:"prev_hash"`
	Timestamp    uint64            `json:"timestamp"`
	HeaderOnly   bool              `json:"header_only,omitempty"`
	Signature    string            `json:"signature,omitempty"`
	Transactions []json.RawMessage `json:"transactions,omitempty"`
}

type wireTx struct {
	Type                string          `json:"type"`
	Hash                string          `json:"hash"`
	From                string          `json:"from,omitempty"`
	To                  string          `json:"to,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	Fee                 decimal.Decimal `json:"fee"`
	MinterKey           string          `json:"minter_key,omitempty"`
	AuthorizationScript string          `json:"authorization_script,omitempty"`
}

// DecodeBlock parses a block from its wire form. An unrecognized transaction
// type yields an error wrapping domain.ErrUnknownTransaction.
func DecodeBlock(raw []byte) (domain.Block, error) {
	var wb wireBlock
	if err := json.Unmarshal(raw, &wb); err != nil {
		return nil, fmt.Errorf("failed to decode block: %w", err)
	}

	hdr := domain.BlockHeader{
		Height:    wb.Height,
		Hash:      wb.Hash,
		PrevHash:  wb.PrevHash,
		Timestamp: wb.Timestamp,
	}
	if wb.HeaderOnly {
		return &domain.HeaderOnlyBlock{BlockHeader: hdr, Signature: wb.Signature}, nil
	}

	txs := make([]domain.Transaction, 0, len(wb.Transactions))
	for i, rawTx := range wb.Transactions {
		tx, err := decodeTx(rawTx)
		if err != nil {
			return nil, fmt.Errorf("block %d tx %d: %w", wb.Height, i, err)
		}
		txs = append(txs, tx)
	}
	return &domain.FullBlock{BlockHeader: hdr, Transactions: txs}, nil
}

// errMissingHash rejects transactions that stores could not deduplicate.
var errMissingHash = errors.New("transaction has no hash")

func decodeTx(raw []byte) (domain.Transaction, error) {
	var wt wireTx
	if err := json.Unmarshal(raw, &wt); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	tx, err := decodeTxVariant(wt)
	if err != nil {
		return nil, err
	}
	if tx.TxHash() == "" {
		return nil, fmt.Errorf("%s: %w", tx.Kind(), errMissingHash)
	}
	return tx, nil
}

func decodeTxVariant(wt wireTx) (domain.Transaction, error) {
	switch domain.TxKind(wt.Type) {
	case domain.TxKindOwnershipChange:
		key, err := hex.DecodeString(wt.MinterKey)
		if err != nil {
			return nil, fmt.Errorf("invalid minter_key: %w", err)
		}
		script, err := hex.DecodeString(wt.AuthorizationScript)
		if err != nil {
			return nil, fmt.Errorf("invalid authorization_script: %w", err)
		}
		return &domain.OwnershipChange{Hash: wt.Hash, MinterKey: key, AuthorizationScript: script}, nil
	case domain.TxKindMint:
		return &domain.Mint{Hash: wt.Hash, To: domain.NormalizeScriptHash(wt.To), Amount: wt.Amount}, nil
	case domain.TxKindReward:
		return &domain.Reward{Hash: wt.Hash, To: domain.NormalizeScriptHash(wt.To), Amount: wt.Amount}, nil
	case domain.TxKindTransfer:
		return &domain.Transfer{
			Hash:   wt.Hash,
			From:   domain.NormalizeScriptHash(wt.From),
			To:     domain.NormalizeScriptHash(wt.To),
			Amount: wt.Amount,
			Fee:    wt.Fee,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTransaction, wt.Type)
	}
}

// EncodeBlock is the inverse of DecodeBlock.
func EncodeBlock(b domain.Block) ([]byte, error) {
	hdr := b.Header()
	wb := wireBlock{
		Height:    hdr.Height,
		Hash:      hdr.Hash,
		PrevHash:  hdr.PrevHash,
		Timestamp: hdr.Timestamp,
	}

	switch blk := b.(type) {
	case *domain.HeaderOnlyBlock:
		wb.HeaderOnly = true
		wb.Signature = blk.Signature
	case *domain.FullBlock:
		for _, tx := range blk.Transactions {
			raw, err := encodeTx(tx)
			if err != nil {
				return nil, err
			}
			wb.Transactions = append(wb.Transactions, raw)
		}
	}
	return json.Marshal(wb)
}

func encodeTx(tx domain.Transaction) (json.RawMessage, error) {
	wt := wireTx{Type: string(tx.Kind()), Hash: tx.TxHash()}
	switch t := tx.(type) {
	case *domain.OwnershipChange:
		wt.MinterKey = hex.EncodeToString(t.MinterKey)
		wt.AuthorizationScript = hex.EncodeToString(t.AuthorizationScript)
	case *domain.Mint:
		wt.To, wt.Amount = string(t.To), t.Amount
	case *domain.Reward:
		wt.To, wt.Amount = string(t.To), t.Amount
	case *domain.Transfer:
		wt.From, wt.To, wt.Amount, wt.Fee = string(t.From), string(t.To), t.Amount, t.Fee
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnknownTransaction, tx)
	}
	return json.Marshal(wt)
}
