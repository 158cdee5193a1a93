package domain

// BlockHeader carries the fields every block variant exposes.
type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prev_hash"`
	Timestamp uint64 `json:"timestamp"`
}

// Block is either a FullBlock or a HeaderOnlyBlock.
type Block interface {
	Height() uint64
	Header() BlockHeader
	isBlock()
}

// FullBlock is a block with its transaction body.
type FullBlock struct {
	BlockHeader
	Transactions []Transaction
}

// HeaderOnlyBlock is a signed header without a body. It never matches a watch set.
type HeaderOnlyBlock struct {
	BlockHeader
	Signature string
}

func (b *FullBlock) Height() uint64      { return b.BlockHeader.Height }
func (b *FullBlock) Header() BlockHeader { return b.BlockHeader }
func (*FullBlock) isBlock()              {}

func (b *HeaderOnlyBlock) Height() uint64      { return b.BlockHeader.Height }
func (b *HeaderOnlyBlock) Header() BlockHeader { return b.BlockHeader }
func (*HeaderOnlyBlock) isBlock()              {}
