package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"main/internal/schema"
)

var (
	ErrQueueFull      = errors.New("journal queue full")
	ErrClosed         = errors.New("journal writer closed")
	ErrNotStarted     = errors.New("journal writer not started")
	ErrAlreadyStarted = errors.New("journal writer already started")
)

// Writer appends ticks to JSONL segments from a buffered queue. TryAppend
// never blocks, so the tick path stays free of file I/O.
type Writer struct {
	cfg Config
	ch  chan schema.Tick
	wg  sync.WaitGroup
	err atomic.Value

	started uint32
	closed  uint32
}

// NewWriter creates a journal writer and ensures the target directory
// exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{cfg: cfg, ch: make(chan schema.Tick, cfg.QueueSize)}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&w.started, 0, 1) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close stops the writer and flushes any buffered data.
func (w *Writer) Close() error {
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		close(w.ch)
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the first error observed by the writer, if any.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryAppend enqueues a tick without blocking.
func (w *Writer) TryAppend(tick schema.Tick) error {
	if atomic.LoadUint32(&w.closed) != 0 {
		return ErrClosed
	}
	if atomic.LoadUint32(&w.started) == 0 {
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	select {
	case w.ch <- tick:
		return nil
	default:
		return ErrQueueFull
	}
}

type segment struct {
	file *os.File
	buf  *bufio.Writer
	size int64
}

func (w *Writer) run(ctx context.Context) {
	var (
		seg   *segment
		segID uint64
	)
	defer func() {
		if seg != nil {
			w.closeSegment(seg)
		}
	}()

	var flushC <-chan time.Time
	if w.cfg.FlushInterval > 0 {
		ticker := time.NewTicker(w.cfg.FlushInterval)
		defer ticker.Stop()
		flushC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-flushC:
			if seg != nil {
				if err := seg.buf.Flush(); err != nil {
					w.fail(err)
					return
				}
			}
		case tick, ok := <-w.ch:
			if !ok {
				return
			}
			if seg == nil || seg.size >= w.cfg.SegmentMaxBytes {
				if seg != nil {
					w.closeSegment(seg)
				}
				segID++
				next, err := w.openSegment(segID)
				if err != nil {
					w.fail(err)
					return
				}
				seg = next
			}
			line, err := json.Marshal(toRecord(tick))
			if err != nil {
				w.fail(err)
				return
			}
			n, err := seg.buf.Write(append(line, '\n'))
			if err != nil {
				w.fail(err)
				return
			}
			seg.size += int64(n)
		}
	}
}

func (w *Writer) openSegment(id uint64) (*segment, error) {
	name := fmt.Sprintf("%s-%s-%06d%s",
		w.cfg.FilePrefix, time.Now().Format("20060102T150405"), id, segmentSuffix)
	file, err := os.OpenFile(filepath.Join(w.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &segment{file: file, buf: bufio.NewWriter(file)}, nil
}

func (w *Writer) closeSegment(seg *segment) {
	if err := seg.buf.Flush(); err != nil {
		w.fail(err)
	}
	if err := seg.file.Close(); err != nil {
		w.fail(err)
	}
}

func (w *Writer) fail(err error) {
	if w.err.Load() == nil {
		w.err.Store(err)
	}
}
