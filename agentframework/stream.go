// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"sync"
)

// ResponseStream is a pull iterator over values produced by a background
// goroutine. A stream runs once; a retry needs a new call.
//
// Callers must Close the stream or cancel its context so the producer can
// exit.
type ResponseStream[T any] struct {
	ch     chan T
	cancel context.CancelFunc

	// producerErr is written before ch is closed and read only after.
	producerErr error

	closeOnce sync.Once
	err       error
}

// NewResponseStream starts producer in a goroutine. Values the producer
// sends on ch are returned by Next in order; its return value becomes the
// stream error once ch is drained.
func NewResponseStream[T any](ctx context.Context, producer func(ctx context.Context, ch chan<- T) error) *ResponseStream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &ResponseStream[T]{ch: make(chan T, 1), cancel: cancel}
	go func() {
		s.producerErr = producer(ctx, s.ch)
		close(s.ch)
	}()
	return s
}

// Next blocks for the next value. ok is false once the stream is exhausted,
// in which case err carries the producer's error, if any.
func (s *ResponseStream[T]) Next(ctx context.Context) (val T, ok bool, err error) {
	select {
	case <-ctx.Done():
		return val, false, ctx.Err()
	case v, open := <-s.ch:
		if open {
			return v, true, nil
		}
		s.err = s.producerErr
		return val, false, s.err
	}
}

// Collect reads every remaining value.
func (s *ResponseStream[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for {
		v, ok, err := s.Next(ctx)
		if !ok || err != nil {
			return items, err
		}
		items = append(items, v)
	}
}

// Err returns the producer error seen at the end of the stream.
func (s *ResponseStream[T]) Err() error { return s.err }

// Close stops the producer and waits for it to exit. It is idempotent.
func (s *ResponseStream[T]) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		for range s.ch {
		}
		if s.err == nil {
			s.err = s.producerErr
		}
	})
	return nil
}
