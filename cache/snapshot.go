package cache

import (
	"encoding"
	"encoding/binary"
	"io"

	cacheerrors "github.com/Abiy-Samson/Blazegraph/errors"
)

// Codec marshals/unmarshals keys and values for SaveTo/LoadInto. Most
// callers can satisfy it with encoding.BinaryMarshaler/BinaryUnmarshaler
// implementations on K and V; Codec is kept separate from those interfaces
// so a caller whose K/V don't implement them can still snapshot by
// supplying adapter functions.
type Codec[K comparable, V any] struct {
	MarshalKey     func(K) ([]byte, error)
	UnmarshalKey   func([]byte) (K, error)
	MarshalValue   func(V) ([]byte, error)
	UnmarshalValue func([]byte) (V, error)
}

// BinaryCodec builds a Codec from K and V's own
// encoding.BinaryMarshaler/BinaryUnmarshaler implementations. newKey and
// newValue construct the zero K and V to unmarshal into (V may be an
// interface or a type whose zero value isn't independently addressable).
func BinaryCodec[K interface {
	comparable
	encoding.BinaryMarshaler
}, V any](newKey func() K, newValue func() V) Codec[K, V] {
	return Codec[K, V]{
		MarshalKey: func(k K) ([]byte, error) { return k.MarshalBinary() },
		UnmarshalKey: func(b []byte) (K, error) {
			k := newKey()
			if u, ok := any(k).(encoding.BinaryUnmarshaler); ok {
				if err := u.UnmarshalBinary(b); err != nil {
					var zero K
					return zero, err
				}
			}
			return k, nil
		},
		MarshalValue: func(v V) ([]byte, error) {
			m, ok := any(v).(encoding.BinaryMarshaler)
			if !ok {
				return nil, cacheerrors.New(cacheerrors.InvalidArgument, "cache: value does not implement encoding.BinaryMarshaler")
			}
			return m.MarshalBinary()
		},
		UnmarshalValue: func(b []byte) (V, error) {
			v := newValue()
			u, ok := any(v).(encoding.BinaryUnmarshaler)
			if !ok {
				return v, cacheerrors.New(cacheerrors.InvalidArgument, "cache: value does not implement encoding.BinaryUnmarshaler")
			}
			if err := u.UnmarshalBinary(b); err != nil {
				var zero V
				return zero, err
			}
			return v, nil
		},
	}
}

// SaveTo writes every (key, value) pair currently in the cache as a
// sequence of length-prefixed records terminated by a zero-length sentinel
// record, per the self-describing snapshot format: every segment is
// locked, in ascending index order, just long enough to copy its bucket
// heads, and the immutable chains are then walked without the lock, so the
// set of keys is a consistent per-segment view even though it is not a
// single atomic whole-cache snapshot. Values are read during the walk.
func (c *Cache[K, V]) SaveTo(w io.Writer, codec Codec[K, V]) error {
	for _, tab := range c.snapshotSegments() {
		for _, first := range tab {
			for e := first; e != nil; e = e.next {
				kb, err := codec.MarshalKey(e.key)
				if err != nil {
					return err
				}
				vb, err := codec.MarshalValue(e.loadValue())
				if err != nil {
					return err
				}
				if err := writeRecord(w, kb, vb); err != nil {
					return err
				}
			}
		}
	}
	return writeRecord(w, nil, nil)
}

// LoadInto reads records written by SaveTo and Put()s each one into c. It
// stops at the first zero-length sentinel record or at EOF.
func (c *Cache[K, V]) LoadInto(r io.Reader, codec Codec[K, V]) error {
	for {
		kb, vb, ok, err := readRecord(r)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		key, err := codec.UnmarshalKey(kb)
		if err != nil {
			return err
		}
		value, err := codec.UnmarshalValue(vb)
		if err != nil {
			return err
		}
		c.Put(key, value)
	}
}

func writeRecord(w io.Writer, kb, vb []byte) error {
	if err := writeLenPrefixed(w, kb); err != nil {
		return err
	}
	return writeLenPrefixed(w, vb)
}

// readRecord reads one (key,value) record. A record whose key length is
// the sentinel (both lengths zero) reports ok=false, ending the stream.
func readRecord(r io.Reader) (kb, vb []byte, ok bool, err error) {
	kb, err = readLenPrefixed(r)
	if err == io.EOF {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}
	vb, err = readLenPrefixed(r)
	if err != nil {
		return nil, nil, false, err
	}
	if len(kb) == 0 && len(vb) == 0 {
		return nil, nil, false, nil
	}
	return kb, vb, true, nil
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
