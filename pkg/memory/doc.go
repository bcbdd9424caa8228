// Package memory is the in-process store of per-conversation message history
// and derived metrics. It is the only mutable shared state in the
// orchestration core.
//
// Invariants:
//   - Message order within a conversation is append-only and never rewritten.
//   - Histories of distinct conversations never mix.
//   - Global metric aggregates live behind their own lock, so metric writes
//     from one conversation never contend with history appends of another.
//
// Conversation records are created lazily on first use and live for the
// process lifetime; nothing is persisted for reads. The optional transcript
// archiver is a write-only audit log.
package memory
