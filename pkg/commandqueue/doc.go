// Package commandqueue provides lane-based task execution with FIFO
// ordering per lane. The orchestrator uses one lane per conversation so
// that turns within a conversation never interleave, while turns for
// distinct conversations run concurrently.
//
// Invariants:
// - Tasks in the same lane execute in FIFO order.
// - Conversation lanes run one task at a time.
// - Tasks in different lanes may execute concurrently.
package commandqueue
