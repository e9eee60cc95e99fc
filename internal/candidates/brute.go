package candidates

import "math"

// BruteSource enumerates every ordered arrangement of alphabet characters,
// shortest labels first: all k-permutations of the alphabet for k = 1..maxLen,
// each length in lexicographic order of character positions. A label never
// uses the same alphabet position twice, so the stream size is
// Σ n!/(n−k)! rather than n^k.
//
// The space still grows combinatorially: maxLen of 3 over the full alphabet
// is ~48k labels, while 4 is already ~1.6M. Anything beyond 3 is rarely
// practical against a real name server.
type BruteSource struct {
	alphabet string
	maxLen   int
	k        int
	perm     *kPermuter
	total    uint64
}

// NewBruteSource builds a brute-force source over the given alphabet with
// labels of length 1 through maxLen.
func NewBruteSource(alphabet string, maxLen int) *BruteSource {
	return &BruteSource{
		alphabet: alphabet,
		maxLen:   maxLen,
		k:        1,
		perm:     newKPermuter([]byte(alphabet), 1),
		total:    PermutationCount(len(alphabet), maxLen),
	}
}

func (b *BruteSource) Next() (string, bool) {
	for {
		if b.perm == nil {
			return "", false
		}
		if label, ok := b.perm.next(); ok {
			return label, true
		}
		b.k++
		if b.k > b.maxLen {
			b.perm = nil
			return "", false
		}
		b.perm = newKPermuter([]byte(b.alphabet), b.k)
	}
}

func (b *BruteSource) Total() uint64 { return b.total }

func (b *BruteSource) Err() error { return nil }

// PermutationCount returns Σ_{k=1..maxLen} n!/(n−k)!, the number of labels a
// BruteSource over an n-character alphabet yields. Saturates at MaxUint64.
func PermutationCount(n, maxLen int) uint64 {
	var total uint64
	for k := 1; k <= maxLen && k <= n; k++ {
		prod := uint64(1)
		for i := 0; i < k; i++ {
			f := uint64(n - i)
			if prod > math.MaxUint64/f {
				return math.MaxUint64
			}
			prod *= f
		}
		if total > math.MaxUint64-prod {
			return math.MaxUint64
		}
		total += prod
	}
	return total
}

// kPermuter yields the k-permutations of pool in lexicographic order of
// element positions, one per call to next. State machine port of the
// classic indices/cycles permutation algorithm.
type kPermuter struct {
	pool    []byte
	indices []int
	cycles  []int
	k       int
	started bool
	done    bool
}

func newKPermuter(pool []byte, k int) *kPermuter {
	n := len(pool)
	p := &kPermuter{pool: pool, k: k}
	if k > n || k < 1 {
		p.done = true
		return p
	}
	p.indices = make([]int, n)
	for i := range p.indices {
		p.indices[i] = i
	}
	p.cycles = make([]int, k)
	for i := 0; i < k; i++ {
		p.cycles[i] = n - i
	}
	return p
}

func (p *kPermuter) next() (string, bool) {
	if p.done {
		return "", false
	}
	if !p.started {
		p.started = true
		return p.current(), true
	}
	n := len(p.pool)
	for i := p.k - 1; i >= 0; i-- {
		p.cycles[i]--
		if p.cycles[i] == 0 {
			// rotate indices[i:] left by one and reset this cycle
			first := p.indices[i]
			copy(p.indices[i:], p.indices[i+1:])
			p.indices[n-1] = first
			p.cycles[i] = n - i
		} else {
			j := n - p.cycles[i]
			p.indices[i], p.indices[j] = p.indices[j], p.indices[i]
			return p.current(), true
		}
	}
	p.done = true
	return "", false
}

func (p *kPermuter) current() string {
	buf := make([]byte, p.k)
	for i := 0; i < p.k; i++ {
		buf[i] = p.pool[p.indices[i]]
	}
	return string(buf)
}
