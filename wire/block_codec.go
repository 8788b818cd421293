package wire

import (
	"encoding/binary"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/numeric"
)

// blockSize returns the packed wire size of a block of the given kind,
// tag byte included.
func blockSize(k block.Kind) int {
	switch k {
	case block.KindState:
		// tag + account + previous + representative + balance + link + dividend + signature + work
		return 1 + 32 + 32 + 32 + 16 + 32 + 8 + 64 + 8
	case block.KindDividend:
		// tag + account + previous + dividend + amount + link + signature + work
		return 1 + 32 + 32 + 8 + 16 + 32 + 64 + 8
	case block.KindClaim:
		// tag + account + previous + dividend + source + balance + link + signature + work
		return 1 + 32 + 32 + 8 + 32 + 16 + 32 + 64 + 8
	default:
		return 0
	}
}

// marshalBlock appends b's packed wire encoding (kind tag followed by its
// canonical fields) to dst.
func marshalBlock(dst []byte, b block.Block) []byte {
	dst = append(dst, byte(b.Kind()))
	switch v := b.(type) {
	case *block.StateBlock:
		dst = append(dst, v.AccountField.Bytes()...)
		dst = append(dst, v.PreviousField.Bytes()...)
		dst = append(dst, v.RepresentativeField.Bytes()...)
		dst = append(dst, v.BalanceField.Bytes()...)
		dst = append(dst, v.LinkField.Bytes()...)
		dst = appendUint64(dst, v.DividendField)
		dst = append(dst, v.SignatureField.Bytes()...)
		dst = appendUint64(dst, v.WorkField)
	case *block.DividendBlock:
		dst = append(dst, v.AccountField.Bytes()...)
		dst = append(dst, v.PreviousField.Bytes()...)
		dst = appendUint64(dst, v.DividendField)
		dst = append(dst, v.AmountField.Bytes()...)
		dst = append(dst, v.LinkField.Bytes()...)
		dst = append(dst, v.SignatureField.Bytes()...)
		dst = appendUint64(dst, v.WorkField)
	case *block.ClaimBlock:
		dst = append(dst, v.AccountField.Bytes()...)
		dst = append(dst, v.PreviousField.Bytes()...)
		dst = appendUint64(dst, v.DividendField)
		dst = append(dst, v.SourceField.Bytes()...)
		dst = append(dst, v.BalanceField.Bytes()...)
		dst = append(dst, v.LinkField.Bytes()...)
		dst = append(dst, v.SignatureField.Bytes()...)
		dst = appendUint64(dst, v.WorkField)
	}
	return dst
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// unmarshalBlock parses a tagged block from the front of src, returning
// the block and the number of bytes consumed. ok is false when src is
// too short or the tag is unrecognised.
func unmarshalBlock(src []byte) (b block.Block, n int, ok bool) {
	if len(src) < 1 {
		return nil, 0, false
	}
	kind := block.Kind(src[0])
	size := blockSize(kind)
	if size == 0 || len(src) < size {
		return nil, 0, false
	}
	body := src[1:size]

	switch kind {
	case block.KindState:
		sb := &block.StateBlock{}
		var off int
		sb.AccountField, off = readUint256(body, 0)
		sb.PreviousField, off = readUint256(body, off)
		sb.RepresentativeField, off = readUint256(body, off)
		sb.BalanceField, off = readUint128(body, off)
		sb.LinkField, off = readUint256(body, off)
		sb.DividendField, off = readUint64(body, off)
		sb.SignatureField, off = readUint512(body, off)
		sb.WorkField, _ = readUint64(body, off)
		return sb, size, true

	case block.KindDividend:
		db := &block.DividendBlock{}
		var off int
		db.AccountField, off = readUint256(body, 0)
		db.PreviousField, off = readUint256(body, off)
		db.DividendField, off = readUint64(body, off)
		db.AmountField, off = readUint128(body, off)
		db.LinkField, off = readUint256(body, off)
		db.SignatureField, off = readUint512(body, off)
		db.WorkField, _ = readUint64(body, off)
		return db, size, true

	case block.KindClaim:
		cb := &block.ClaimBlock{}
		var off int
		cb.AccountField, off = readUint256(body, 0)
		cb.PreviousField, off = readUint256(body, off)
		cb.DividendField, off = readUint64(body, off)
		cb.SourceField, off = readUint256(body, off)
		cb.BalanceField, off = readUint128(body, off)
		cb.LinkField, off = readUint256(body, off)
		cb.SignatureField, off = readUint512(body, off)
		cb.WorkField, _ = readUint64(body, off)
		return cb, size, true

	default:
		return nil, 0, false
	}
}

func readUint256(src []byte, off int) (numeric.Uint256, int) {
	var u numeric.Uint256
	copy(u[:], src[off:off+32])
	return u, off + 32
}

func readUint128(src []byte, off int) (numeric.Uint128, int) {
	var u numeric.Uint128
	copy(u[:], src[off:off+16])
	return u, off + 16
}

func readUint512(src []byte, off int) (numeric.Uint512, int) {
	var u numeric.Uint512
	copy(u[:], src[off:off+64])
	return u, off + 64
}

func readUint64(src []byte, off int) (uint64, int) {
	return binary.BigEndian.Uint64(src[off : off+8]), off + 8
}
