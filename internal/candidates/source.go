// Package candidates produces the stream of subdomain labels a scan will
// probe. Both variants are lazy, single-pass sequences consumed by exactly
// one reader (the scheduler); neither is safe for concurrent pulls.
package candidates

// Alphabet is the label character set: ASCII lowercase letters, digits and
// hyphen, in that order. Valid hostnames should not start or end with a
// hyphen, but brute-forced labels are probed as-is, matching common wordlist
// behavior.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789-"

// Source yields subdomain labels one at a time.
type Source interface {
	// Next returns the next label, or ok=false when the stream is exhausted.
	Next() (label string, ok bool)
	// Total reports how many labels the stream will yield in total. It is
	// known up front and does not consume the stream.
	Total() uint64
	// Err returns the first error hit while reading, if any. Valid after
	// Next has returned ok=false.
	Err() error
}
