// Package dispatch runs waves: it turns property changes into handler
// executions over a sealed callback graph.
//
// ARCHITECTURE:
//
// One Dispatcher serves one session. Waves are strictly serial; a wave runs
// to completion before the next one starts and is never preempted. Changes
// submitted while a wave is computing wait in a coalescing queue that keeps
// only the latest value per property, in first-arrival order, and the next
// wave takes the whole batch.
//
// Wave Flow:
//  1. Apply the batch of changes to the registry
//  2. Seed set: callbacks with a trigger among the changed properties
//  3. Affected set: everything reachable from the seeds, in topological rank
//  4. Execute in rank order against a wave snapshot that every update
//     writes through, so downstream handlers read fresh upstream outputs
//  5. A no-op or failed callback suppresses its outputs; callbacks with a
//     suppressed trigger are skipped and suppress theirs in turn
//
// Handler failures, including panics, are isolated to their callback and
// reported on the Wave. They never abort the wave or the session.
//
// Waves are stamped with a logical sequence number from Clock and an id from
// a WaveIDGenerator. Wall-clock time plays no part in ordering.
package dispatch
