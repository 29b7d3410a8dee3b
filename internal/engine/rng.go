package engine

import (
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
)

// SeedHexLen is the required length of a game seed: 192 hex characters
// encoding 96 bytes (768 bits).
const SeedHexLen = 192

// SeedLen is the decoded seed length in bytes.
const SeedLen = 96

// RNGVersion identifies the wall derivation scheme. Bump on any change
// to the PCG variant or the hash layout; replays record it.
const RNGVersion = 1

// InvalidSeedError reports a seed that is not 192 hex characters.
type InvalidSeedError struct {
	Got int
}

func (e *InvalidSeedError) Error() string {
	return fmt.Sprintf("engine: seed must be %d hex characters, got %d", SeedHexLen, e.Got)
}

// Seed is a decoded 96-byte game seed.
type Seed [SeedLen]byte

// ParseSeed validates and decodes a 192-hex-character seed string.
func ParseSeed(s string) (Seed, error) {
	var seed Seed
	if len(s) != SeedHexLen {
		return seed, &InvalidSeedError{Got: len(s)}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return seed, &InvalidSeedError{Got: len(s)}
	}
	copy(seed[:], raw)
	return seed, nil
}

// String returns the hex form of the seed.
func (s Seed) String() string { return hex.EncodeToString(s[:]) }

// PCG64DXSM constants. The LCG uses the full canonical 128-bit
// multiplier; the output permutation is DXSM.
const (
	pcgMulHi = 0x2360ED051FC65DA4
	pcgMulLo = 0x4385DF649FCCF645
	dxsmMul  = 0xDA942042E4DD58B5
)

// Domain separation prefixes for the per-round and first-dealer
// derivation streams.
const (
	domainWall   = "wall:"
	domainDealer = "dealer:"
)

// PCG64 is a PCG64DXSM generator: a 128-bit LCG with a 64-bit DXSM
// output permutation.
type PCG64 struct {
	hi, lo   uint64 // state
	incHi    uint64
	incLo    uint64
}

// NewPCG64 builds a generator from a 128-bit state and increment. The
// increment is forced odd; the seed state is injected and then the LCG
// is advanced twice before the first output.
func NewPCG64(stateHi, stateLo, incHi, incLo uint64) *PCG64 {
	p := &PCG64{hi: stateHi, lo: stateLo, incHi: incHi, incLo: incLo | 1}
	p.step()
	p.step()
	return p
}

// step advances the 128-bit LCG: state = state*mul + inc.
func (p *PCG64) step() {
	hi, lo := bits.Mul64(p.lo, pcgMulLo)
	hi += p.hi*pcgMulLo + p.lo*pcgMulHi
	lo, carry := bits.Add64(lo, p.incLo, 0)
	hi += p.incHi + carry
	p.hi, p.lo = hi, lo
}

// Next advances the generator and returns 64 output bits.
func (p *PCG64) Next() uint64 {
	p.step()
	hi, lo := p.hi, p.lo|1
	hi ^= hi >> 32
	hi *= dxsmMul
	hi ^= hi >> 48
	return hi * lo
}

// Bounded returns an unbiased value in [0, n) by rejection: values at
// or above 2^64 − (2^64 mod n) are redrawn.
func (p *PCG64) Bounded(n uint64) uint64 {
	if n == 0 {
		panic("engine: Bounded(0)")
	}
	mod := -n % n // 2^64 mod n
	limit := -mod // 2^64 − mod; zero means the full range is fair
	for {
		r := p.Next()
		if limit == 0 || r < limit {
			return r % n
		}
	}
}

// Shuffle runs a Fisher–Yates pass over tiles in place.
func (p *PCG64) Shuffle(tiles []Tile) {
	n := len(tiles)
	for i := 0; i < n-1; i++ {
		j := i + int(p.Bounded(uint64(n-i)))
		tiles[i], tiles[j] = tiles[j], tiles[i]
	}
}

// Die returns a die roll in [1, 6].
func (p *PCG64) Die() int { return 1 + int(p.Bounded(6)) }

// derive builds the generator for one domain-separated stream:
// SHA-512(domain || seed || round_le32), first 16 digest bytes as the
// 128-bit state, next 16 as the increment (little-endian words).
func derive(domain string, seed Seed, round uint32) *PCG64 {
	h := sha512.New()
	h.Write([]byte(domain))
	h.Write(seed[:])
	var rb [4]byte
	binary.LittleEndian.PutUint32(rb[:], round)
	h.Write(rb[:])
	d := h.Sum(nil)
	return NewPCG64(
		binary.LittleEndian.Uint64(d[8:16]),
		binary.LittleEndian.Uint64(d[0:8]),
		binary.LittleEndian.Uint64(d[24:32]),
		binary.LittleEndian.Uint64(d[16:24]),
	)
}

// RoundRNG returns the deterministic stream for one round's wall.
// Streams for different rounds are independent.
func RoundRNG(seed Seed, round uint32) *PCG64 {
	return derive(domainWall, seed, round)
}

// DealerRNG returns the stream used for the first-dealer determination
// and the initial seat permutation.
func DealerRNG(seed Seed) *PCG64 {
	return derive(domainDealer, seed, 0)
}
