// Package merge combines completed chunk stores into one globally sorted
// concordance. It performs a k-way merge over each store's sorted iterator;
// when the store count exceeds the open-handle ceiling, contiguous groups
// are merged into intermediate stores and those are merged again,
// recursively, which preserves per-word frequency sums and chunk-order
// sentence sequences at every level.
package merge

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/config"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/metrics"
)

// Merger merges chunk stores into a final concordance store.
type Merger struct {
	dataDir        string
	maxOpen        int
	parallel       int
	storeBatchSize int
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// New creates a Merger writing intermediates into dataDir. metrics may be nil.
func New(dataDir string, cfg config.MergeConfig, storeBatchSize int, m *metrics.Metrics) *Merger {
	maxOpen := cfg.MaxOpenStores
	if maxOpen < 2 {
		maxOpen = 8
	}
	parallel := cfg.BatchParallelism
	if parallel <= 0 {
		parallel = 1
	}
	return &Merger{
		dataDir:        dataDir,
		maxOpen:        maxOpen,
		parallel:       parallel,
		storeBatchSize: storeBatchSize,
		metrics:        m,
		logger:         logger.WithComponent("merger"),
	}
}

type source struct {
	path  string
	chunk int
}

// Run merges the chunk stores at chunkPaths (index i holding chunk i) into a
// final store at finalPath and returns it marked complete with the total
// sentence count. It fails with a merge-stage error when any store is
// missing or not marked complete.
func (m *Merger) Run(ctx context.Context, chunkPaths []string, finalPath string) (*store.Store, error) {
	start := time.Now()

	var missing []int
	sources := make([]source, 0, len(chunkPaths))
	for chunk, path := range chunkPaths {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, chunk)
			continue
		}
		sources = append(sources, source{path: path, chunk: chunk})
	}
	if len(missing) > 0 {
		return nil, cerrors.Merge(cerrors.ErrStoreMissing, "chunks %v have no store", missing)
	}

	var intermediates []string
	defer func() {
		for _, path := range intermediates {
			os.Remove(path)
		}
	}()

	level := 0
	for len(sources) > m.maxOpen {
		next, paths, err := m.mergeLevel(ctx, sources, level)
		if err != nil {
			return nil, err
		}
		intermediates = append(intermediates, paths...)
		sources = next
		level++
	}

	final, err := m.mergeInto(ctx, sources, finalPath, -1)
	if err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.MergeDuration.Observe(time.Since(start).Seconds())
	}
	m.logger.Info("merge complete",
		"chunks", len(chunkPaths),
		"levels", level+1,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return final, nil
}

// mergeLevel merges contiguous groups of up to maxOpen sources into
// intermediate stores. Groups cover ascending chunk ranges, so assigning
// each intermediate its group's first chunk index keeps tie-breaking by
// chunk order correct at the next level.
func (m *Merger) mergeLevel(ctx context.Context, sources []source, level int) ([]source, []string, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallel)
	next := make([]source, 0, (len(sources)+m.maxOpen-1)/m.maxOpen)
	var paths []string
	for i := 0; i < len(sources); i += m.maxOpen {
		group := sources[i:min(i+m.maxOpen, len(sources))]
		path := filepath.Join(m.dataDir, fmt.Sprintf("merge_l%d_%04d.db", level, group[0].chunk))
		next = append(next, source{path: path, chunk: group[0].chunk})
		paths = append(paths, path)
		g.Go(func() error {
			merged, err := m.mergeInto(gctx, group, path, group[0].chunk)
			if err != nil {
				return err
			}
			return merged.Close()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, paths, err
	}
	m.logger.Debug("merge level finished", "level", level, "inputs", len(sources), "outputs", len(next))
	return next, paths, nil
}

// mergeInto k-way merges the given sources into a new store at outPath.
func (m *Merger) mergeInto(ctx context.Context, sources []source, outPath string, outChunk int) (*store.Store, error) {
	stores := make([]*store.Store, 0, len(sources))
	defer func() {
		for _, s := range stores {
			s.Close()
		}
	}()

	var incomplete []int
	sentences := 0
	iterators := make([]*store.Iterator, 0, len(sources))
	for _, src := range sources {
		s, err := store.Open(src.path, src.chunk, m.storeBatchSize)
		if err != nil {
			return nil, cerrors.Merge(cerrors.ErrStoreMissing, "opening chunk %d store: %v", src.chunk, err)
		}
		stores = append(stores, s)
		complete, err := s.Complete()
		if err != nil {
			return nil, cerrors.Merge(cerrors.ErrStoreIncomplete, "chunk %d: %v", src.chunk, err)
		}
		if !complete {
			incomplete = append(incomplete, src.chunk)
			continue
		}
		count, err := s.SentenceCount()
		if err != nil {
			return nil, cerrors.Merge(cerrors.ErrStoreIncomplete, "chunk %d: %v", src.chunk, err)
		}
		sentences += count
		it, err := s.Iterate()
		if err != nil {
			return nil, cerrors.Merge(cerrors.ErrStoreIncomplete, "chunk %d: %v", src.chunk, err)
		}
		iterators = append(iterators, it)
	}
	if len(incomplete) > 0 {
		return nil, cerrors.Merge(cerrors.ErrStoreIncomplete, "chunks %v are not complete", incomplete)
	}
	defer func() {
		for _, it := range iterators {
			it.Close()
		}
	}()

	os.Remove(outPath)
	out, err := store.Open(outPath, outChunk, m.storeBatchSize)
	if err != nil {
		return nil, cerrors.Merge(cerrors.ErrExportFailed, "creating merged store: %v", err)
	}
	if err := out.Reset(); err != nil {
		out.Close()
		return nil, cerrors.Merge(cerrors.ErrExportFailed, "resetting merged store: %v", err)
	}

	err = kWayMerge(ctx, iterators, func(e store.Entry) error {
		return out.WriteEntry(e)
	})
	if err != nil {
		out.Close()
		return nil, err
	}
	if err := out.MarkComplete(sentences); err != nil {
		out.Close()
		return nil, cerrors.Merge(cerrors.ErrExportFailed, "completing merged store: %v", err)
	}
	if m.metrics != nil {
		m.metrics.StoresMergedTotal.Add(float64(len(sources)))
	}
	return out, nil
}

// kWayMerge drains the iterators in ascending word order, combining equal
// words across sources: frequencies are summed and sentence lists
// concatenated in ascending chunk order, each list already in appearance
// order. The output is emitted in strictly increasing word order with no
// duplicates, with no separate sort step.
func kWayMerge(ctx context.Context, iterators []*store.Iterator, sink func(store.Entry) error) error {
	h := &entryHeap{}
	for _, it := range iterators {
		entry, err := it.Next()
		if err != nil {
			return cerrors.Merge(cerrors.ErrStoreIncomplete, "reading store: %v", err)
		}
		if entry != nil {
			heap.Push(h, &heapItem{it: it, entry: entry})
		}
	}

	for h.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return cerrors.Merge(cerrors.ErrExportFailed, "cancelled: %v", err)
		}
		first := heap.Pop(h).(*heapItem)
		merged := store.Entry{
			Word:      first.entry.Word,
			Frequency: first.entry.Frequency,
			Sentences: append([]int(nil), first.entry.Sentences...),
		}
		consumed := []*heapItem{first}
		for h.Len() > 0 && (*h)[0].entry.Word == merged.Word {
			item := heap.Pop(h).(*heapItem)
			merged.Frequency += item.entry.Frequency
			merged.Sentences = append(merged.Sentences, item.entry.Sentences...)
			consumed = append(consumed, item)
		}
		if err := sink(merged); err != nil {
			return cerrors.Merge(cerrors.ErrExportFailed, "writing %q: %v", merged.Word, err)
		}
		for _, item := range consumed {
			entry, err := item.it.Next()
			if err != nil {
				return cerrors.Merge(cerrors.ErrStoreIncomplete, "reading store: %v", err)
			}
			if entry != nil {
				item.entry = entry
				heap.Push(h, item)
			}
		}
	}
	return nil
}

type heapItem struct {
	it    *store.Iterator
	entry *store.Entry
}

type entryHeap []*heapItem

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].entry.Word != h[j].entry.Word {
		return h[i].entry.Word < h[j].entry.Word
	}
	return h[i].it.Chunk() < h[j].it.Chunk()
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapItem))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
