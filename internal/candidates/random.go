package candidates

import "math/rand"

// RandomLabel returns a label of length n drawn uniformly from Alphabet.
// Used by the wildcard check to build names that almost certainly do not
// exist under the target domain.
func RandomLabel(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = Alphabet[rand.Intn(len(Alphabet))]
	}
	return string(b)
}
