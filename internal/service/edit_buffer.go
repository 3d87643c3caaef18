package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/models"
	"github.com/rs/zerolog"
)

// ErrBufferClosed is returned by Add after Close
var ErrBufferClosed = errors.New("edit buffer is closed")

// FlushFunc persists one drained batch of edits
type FlushFunc func(ctx context.Context, edits []models.SelectionEdit) error

// EditBuffer coalesces selection edits by employee id. Each Add restarts a
// single timer; when it fires, or on Flush or Close, the pending edits are
// drained atomically and handed to the flush func as one batch. Flushes never
// overlap.
type EditBuffer struct {
	mu      sync.Mutex
	pending map[string]models.SelectionEdit
	order   []string
	timer   *time.Timer
	closed  bool

	// flushing holds a token while a flush is in flight
	flushing chan struct{}

	delay   time.Duration
	flushFn FlushFunc
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewEditBuffer creates a buffer that flushes delay after the last Add
func NewEditBuffer(delay time.Duration, flushFn FlushFunc, m *metrics.Metrics, log zerolog.Logger) *EditBuffer {
	return &EditBuffer{
		pending:  make(map[string]models.SelectionEdit),
		flushing: make(chan struct{}, 1),
		delay:    delay,
		flushFn:  flushFn,
		metrics:  m,
		log:      log.With().Str("component", "edit_buffer").Logger(),
	}
}

// Add queues edit, replacing any pending edit for the same employee
func (b *EditBuffer) Add(edit models.SelectionEdit) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBufferClosed
	}

	if _, ok := b.pending[edit.EmployeeID]; !ok {
		b.order = append(b.order, edit.EmployeeID)
	}
	b.pending[edit.EmployeeID] = edit
	b.metrics.SetEditsPending(len(b.pending))
	b.scheduleLocked()
	return nil
}

// Len returns the number of pending edits
func (b *EditBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Pending returns a copy of the pending edits keyed by employee id
func (b *EditBuffer) Pending() map[string]models.SelectionEdit {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]models.SelectionEdit, len(b.pending))
	for id, e := range b.pending {
		out[id] = e
	}
	return out
}

// Flush drains and persists the pending edits now, returning how many were
// written. On failure the drained edits are put back unless a newer edit for
// the same employee arrived meanwhile.
func (b *EditBuffer) Flush(ctx context.Context) (int, error) {
	select {
	case b.flushing <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-b.flushing }()

	edits := b.drain()
	if len(edits) == 0 {
		return 0, nil
	}

	if err := b.flushFn(ctx, edits); err != nil {
		b.requeue(edits)
		return 0, err
	}
	return len(edits), nil
}

// Discard drops every pending edit and returns how many were dropped
func (b *EditBuffer) Discard() int {
	return len(b.drain())
}

// Close stops the timer, rejects further edits and flushes what is pending.
// It waits for an in-flight flush first, so edits that flush requeues are
// retried here. Edits still unwritten when it returns are reported as an error.
func (b *EditBuffer) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()

	n, err := b.Flush(ctx)
	if err != nil {
		remaining := b.Len()
		b.log.Error().Err(err).Int("unwritten", remaining).Msg("Final flush failed, edits remain only in memory")
		return fmt.Errorf("%d selection edits not persisted: %w", remaining, err)
	}
	b.log.Info().Int("flushed", n).Msg("Edit buffer closed")
	return nil
}

func (b *EditBuffer) drain() []models.SelectionEdit {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}

	edits := make([]models.SelectionEdit, 0, len(b.order))
	for _, id := range b.order {
		edits = append(edits, b.pending[id])
	}
	b.pending = make(map[string]models.SelectionEdit)
	b.order = nil
	b.metrics.SetEditsPending(0)
	return edits
}

func (b *EditBuffer) requeue(edits []models.SelectionEdit) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var order []string
	for _, e := range edits {
		if _, newer := b.pending[e.EmployeeID]; newer {
			continue
		}
		b.pending[e.EmployeeID] = e
		order = append(order, e.EmployeeID)
	}
	b.order = append(order, b.order...)
	b.metrics.SetEditsPending(len(b.pending))

	if !b.closed {
		b.scheduleLocked()
	}
}

// scheduleLocked restarts the flush timer; b.mu must be held
func (b *EditBuffer) scheduleLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.onTimer)
}

func (b *EditBuffer) onTimer() {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := b.Flush(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Scheduled flush failed, will retry")
		return
	}
	if n > 0 {
		b.log.Debug().Int("flushed", n).Msg("Selection edits flushed")
	}
}
