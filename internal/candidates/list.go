package candidates

import (
	"bufio"
	"fmt"
	"os"
)

// ListSource streams labels from a newline-delimited wordlist, preserving
// file order. The file is never loaded whole: one cheap counting pass up
// front establishes Total, then labels are read forward on demand. Lines are
// yielded as-is (minus the line ending), including empty ones, so the count
// and the stream always agree.
type ListSource struct {
	path  string
	f     *os.File
	sc    *bufio.Scanner
	total uint64
	err   error
}

// NewListSource opens the wordlist at path. A missing or unreadable file is
// an error here, before any probing starts.
func NewListSource(path string) (*ListSource, error) {
	total, err := countLines(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wordlist: %w", err)
	}
	return &ListSource{
		path:  path,
		f:     f,
		sc:    bufio.NewScanner(f),
		total: total,
	}, nil
}

func (l *ListSource) Next() (string, bool) {
	if l.f == nil {
		return "", false
	}
	if l.sc.Scan() {
		return l.sc.Text(), true
	}
	if err := l.sc.Err(); err != nil {
		l.err = fmt.Errorf("read wordlist %s: %w", l.path, err)
	}
	l.f.Close()
	l.f = nil
	return "", false
}

func (l *ListSource) Total() uint64 { return l.total }

func (l *ListSource) Err() error { return l.err }

// Close releases the underlying file. Needed only when the stream is
// abandoned before exhaustion; Next closes it on its own at the end.
func (l *ListSource) Close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

func countLines(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open wordlist: %w", err)
	}
	defer f.Close()

	var n uint64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("count wordlist %s: %w", path, err)
	}
	return n, nil
}
