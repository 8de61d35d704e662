package predict

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// ResultCollector gathers the outcome of every batch of one Predict call
// into an index-addressed slot array and lets the caller block until all of
// them are in.
type ResultCollector struct {
	mu    sync.Mutex
	cond  *sync.Cond
	slots []ResultSlot
	done  int
	gate  *ConcurrencyGate
}

func NewResultCollector(batchCount int, gate *ConcurrencyGate) *ResultCollector {
	c := &ResultCollector{
		slots: make([]ResultSlot, batchCount),
		gate:  gate,
	}
	for i := range c.slots {
		c.slots[i].Index = i
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// RecordResult stores a successful batch output. A second terminal outcome
// for the same index is dropped.
func (c *ResultCollector) RecordResult(index int, value OutputMap) {
	if value == nil {
		value = OutputMap{}
	}
	c.record(ResultSlot{Index: index, Value: value})
}

// RecordError stores the terminal failure of a batch. A second terminal
// outcome for the same index is dropped.
func (c *ResultCollector) RecordError(index int, err error) {
	if err == nil {
		log.Warn().Int("batch_index", index).Msg("Ignoring nil error recorded for batch")
		return
	}
	c.record(ResultSlot{Index: index, Err: err})
}

func (c *ResultCollector) record(slot ResultSlot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slot.Index < 0 || slot.Index >= len(c.slots) {
		log.Error().Int("batch_index", slot.Index).Int("batch_count", len(c.slots)).Msg("Result recorded for unknown batch")
		return
	}
	if !c.slots[slot.Index].pending() {
		log.Error().Int("batch_index", slot.Index).Msg("Batch outcome recorded twice, keeping the first")
		return
	}
	c.slots[slot.Index] = slot
}

// MarkDone counts one finished batch and wakes WaitAll once every batch is
// counted.
func (c *ResultCollector) MarkDone() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done >= len(c.slots) {
		log.Error().Int("batch_count", len(c.slots)).Msg("MarkDone called more times than there are batches")
		return
	}
	c.done++
	if c.done == len(c.slots) {
		c.cond.Broadcast()
	}
}

// Complete records the slot, counts the batch as done and releases its gate
// slot, in that order.
func (c *ResultCollector) Complete(slot ResultSlot) {
	if slot.Err != nil {
		c.RecordError(slot.Index, slot.Err)
	} else {
		c.RecordResult(slot.Index, slot.Value)
	}
	c.MarkDone()
	c.ThrottleRelease()
}

func (c *ResultCollector) ThrottleAcquire() {
	c.gate.Acquire()
}

func (c *ResultCollector) ThrottleRelease() {
	c.gate.Release()
}

// Done is the number of batches counted so far.
func (c *ResultCollector) Done() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// WaitAll blocks until every batch is done and returns the outputs and
// errors aligned with batch index.
func (c *ResultCollector) WaitAll() ([]OutputMap, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.done < len(c.slots) {
		c.cond.Wait()
	}

	results := make([]OutputMap, len(c.slots))
	errs := make([]error, len(c.slots))
	for i, slot := range c.slots {
		results[i] = slot.Value
		errs[i] = slot.Err
	}
	return results, errs
}
