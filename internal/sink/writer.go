package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// recentMax bounds how many records the writer keeps around for the status
// API after they have been flushed.
const recentMax = 100

// storeTimeout caps each database batch so a stalled connection cannot block
// the writer loop.
const storeTimeout = 5 * time.Second

// Writer drains Results to the output file whenever it is woken. With no
// output path it logs each record instead, so a scan without a destination
// still surfaces findings without buffering them forever.
type Writer struct {
	log     *zap.Logger
	results *Results
	store   Store

	f  *os.File
	bw *bufio.Writer

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	recent  []Record
	written uint64
}

// NewWriter opens path for writing (truncating whatever is there; the caller
// decides whether that is allowed) and returns a writer draining results into
// it. Path may be empty and store may be nil; both destinations are optional.
func NewWriter(log *zap.Logger, results *Results, path string, store Store) (*Writer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if results == nil {
		return nil, fmt.Errorf("sink: results must not be nil")
	}
	w := &Writer{
		log:     log,
		results: results,
		store:   store,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("opening output file: %w", err)
		}
		w.f = f
		w.bw = bufio.NewWriter(f)
		log.Debug("output_opened", zap.String("path", path))
	}
	return w, nil
}

// Run services wakes until Close is called. It is meant to run in its own
// goroutine.
func (w *Writer) Run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// Wake nudges the writer to drain pending records. It never blocks; a wake
// arriving while one is already pending folds into it.
func (w *Writer) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close performs a final drain, waits for Run to return and closes the output
// file and store. It must not be called before Run has been started.
func (w *Writer) Close() error {
	close(w.stop)
	<-w.done
	var err error
	if w.f != nil {
		err = multierr.Append(err, w.bw.Flush())
		err = multierr.Append(err, w.f.Close())
	}
	if w.store != nil {
		w.store.Close()
	}
	return err
}

func (w *Writer) drain() {
	batch := w.results.Drain()
	if len(batch) == 0 {
		return
	}
	if w.bw != nil {
		for _, r := range batch {
			w.bw.WriteString(r.Line())
			w.bw.WriteByte('\n')
		}
		if err := w.bw.Flush(); err != nil {
			w.log.Error("output_flush_failed", zap.Error(err))
		}
	} else {
		for _, r := range batch {
			w.log.Info("result",
				zap.String("target", r.Target),
				zap.String("value", r.Value))
		}
	}
	if w.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := w.store.SaveBatch(ctx, batch); err != nil {
			w.log.Error("store_save_failed",
				zap.Int("batch", len(batch)),
				zap.Error(err))
		}
		cancel()
	}
	w.remember(batch)
}

func (w *Writer) remember(batch []Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written += uint64(len(batch))
	w.recent = append(w.recent, batch...)
	if n := len(w.recent) - recentMax; n > 0 {
		w.recent = append(w.recent[:0], w.recent[n:]...)
	}
}

// Written reports how many records have been flushed so far.
func (w *Writer) Written() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Recent returns a copy of the most recently flushed records, newest last.
func (w *Writer) Recent() []Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Record, len(w.recent))
	copy(out, w.recent)
	return out
}
