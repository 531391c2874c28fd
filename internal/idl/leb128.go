package idl

import (
	"errors"
	"math/big"
)

var errOverflow = errors.New("leb128: value overflows")

func appendULEB(b []byte, n uint64) []byte {
	for {
		c := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendSLEB(b []byte, n int64) []byte {
	for {
		c := byte(n & 0x7f)
		n >>= 7
		if (n == 0 && c&0x40 == 0) || (n == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendBigULEB(b []byte, n *big.Int) []byte {
	if n.IsUint64() {
		return appendULEB(b, n.Uint64())
	}
	x := new(big.Int).Set(n)
	mask := big.NewInt(0x7f)
	for {
		c := byte(new(big.Int).And(x, mask).Uint64())
		x.Rsh(x, 7)
		if x.Sign() == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendBigSLEB(b []byte, n *big.Int) []byte {
	if n.IsInt64() {
		return appendSLEB(b, n.Int64())
	}
	x := new(big.Int).Set(n)
	mask := big.NewInt(0x7f)
	minusOne := big.NewInt(-1)
	for {
		// And on a negative big.Int uses two's complement semantics.
		c := byte(new(big.Int).And(x, mask).Uint64())
		x.Rsh(x, 7)
		if (x.Sign() == 0 && c&0x40 == 0) || (x.Cmp(minusOne) == 0 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// reader is a bounds-checked cursor over an encoded message.
type reader struct {
	buf []byte
	pos int
	// values counts decoded values against maxValues.
	values int
}

var errEOF = errors.New("unexpected end of input")

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errEOF
	}
	c := r.buf[r.pos]
	r.pos++
	return c, nil
}

func (r *reader) read(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, errEOF
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) bigULEB() (*big.Int, error) {
	out := new(big.Int)
	var shift uint
	for {
		c, err := r.readByte()
		if err != nil {
			return nil, err
		}
		chunk := new(big.Int).SetUint64(uint64(c & 0x7f))
		out.Or(out, chunk.Lsh(chunk, shift))
		shift += 7
		if c&0x80 == 0 {
			return out, nil
		}
	}
}

func (r *reader) bigSLEB() (*big.Int, error) {
	out := new(big.Int)
	var shift uint
	for {
		c, err := r.readByte()
		if err != nil {
			return nil, err
		}
		chunk := new(big.Int).SetUint64(uint64(c & 0x7f))
		out.Or(out, chunk.Lsh(chunk, shift))
		shift += 7
		if c&0x80 == 0 {
			if c&0x40 != 0 {
				out.Sub(out, new(big.Int).Lsh(big.NewInt(1), shift))
			}
			return out, nil
		}
	}
}

func (r *reader) uleb() (uint64, error) {
	n, err := r.bigULEB()
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, errOverflow
	}
	return n.Uint64(), nil
}

func (r *reader) sleb() (int64, error) {
	n, err := r.bigSLEB()
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, errOverflow
	}
	return n.Int64(), nil
}
