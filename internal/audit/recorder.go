package audit

import (
	"sync"

	"github.com/banshee-data/railguard/internal/monitoring"
)

// DefaultRecorderBuffer is the channel depth between the decision loop and
// the database writer.
const DefaultRecorderBuffer = 256

// Recorder decouples the decision loop from database latency: Record never
// blocks, and a full buffer drops the frame with a log line rather than stall
// the loop. Dropped audit is recoverable; a late decision is not.
type Recorder struct {
	store *Store
	ch    chan *FrameRecord

	wg      sync.WaitGroup
	once    sync.Once
	dropped int64
	mu      sync.Mutex
}

// NewRecorder starts the background writer. buffer <= 0 uses the default.
func NewRecorder(store *Store, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}
	r := &Recorder{
		store: store,
		ch:    make(chan *FrameRecord, buffer),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for rec := range r.ch {
		if err := r.store.InsertFrame(rec); err != nil {
			monitoring.Logf("audit: insert frame %d failed: %v", rec.FrameIndex, err)
		}
	}
}

// Record enqueues a frame for persistence. Returns false if the frame was
// dropped because the writer is behind.
func (r *Recorder) Record(rec *FrameRecord) bool {
	select {
	case r.ch <- rec:
		return true
	default:
		r.mu.Lock()
		r.dropped++
		n := r.dropped
		r.mu.Unlock()
		if n == 1 || n%100 == 0 {
			monitoring.Logf("audit: recorder buffer full, dropped %d frames so far", n)
		}
		return false
	}
}

// Dropped returns how many frames were discarded due to backpressure.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close flushes buffered frames and stops the writer. Safe to call more than
// once; the store itself is not closed.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.ch)
	})
	r.wg.Wait()
}
