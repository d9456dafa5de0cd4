// Package orchestrator runs every registered transform whose input set
// includes a field that was just written, exactly once per triggering
// mutation. It maintains a field->transform index rebuilt from the
// persisted transform store, a FIFO work queue, and an LRU-bounded set of
// already-processed (transform_id, mutation_id) pairs so a transform's own
// output write cannot re-trigger itself within the mutation that started
// it.
package orchestrator
