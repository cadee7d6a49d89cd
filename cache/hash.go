package cache

import "github.com/cespare/xxhash/v2"

// Hasher computes a 64-bit digest for a key. Callers supply one at
// construction time since Go generics give us no way to derive a hash
// function from an arbitrary comparable type parameter.
type Hasher[K any] func(key K) uint64

// StringHasher hashes string keys with xxhash.
func StringHasher(key string) uint64 {
	return xxhash.Sum64String(key)
}

// BytesHasher hashes []byte keys with xxhash.
func BytesHasher(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// Uint64Hasher passes uint64 keys through xxhash's avalanche mix so that
// sequential keys don't cluster in the same segment/bucket.
func Uint64Hasher(key uint64) uint64 {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(key >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

// spread folds a 64-bit hash to 32 bits (XOR of its high and low halves) and
// applies a Wang/Jenkins-style bit-spreader to the result so that segment and bucket selection both get well-mixed input, even
// when the caller's Hasher produces hashes with weak entropy in the low or
// high bits (e.g. small sequential integers).
//
// This defends against poor quality hash functions the same way the classic
// java.util.concurrent.ConcurrentHashMap implementation does; it is applied
// on top of whatever the caller's Hasher already computed.
func spread(h uint64) uint32 {
	v := uint32(h) ^ uint32(h>>32)
	v += (v << 15) ^ 0xffffcd7d
	v ^= v >> 10
	v += v << 3
	v ^= v >> 6
	v += (v << 2) + (v << 14)
	return v ^ (v >> 16)
}
