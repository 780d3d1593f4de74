// Package queue defines the job transport between the dispatcher and chunk
// workers: durable, at-least-once delivery with acknowledgement by handler
// return value. A nil handler result acknowledges the job; an error leaves
// it eligible for redelivery.
package queue

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/splitter"
)

// Handler processes one delivered chunk job. Returning nil acknowledges it.
type Handler func(ctx context.Context, job splitter.ChunkJob) error

// Queue is the transport contract. Implementations must deliver every
// published job at least once to some consumer.
type Queue interface {
	Publish(ctx context.Context, job splitter.ChunkJob) error
	// Consume blocks, delivering jobs to handler until ctx is cancelled.
	// Safe to call from multiple goroutines for competing consumers.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}
