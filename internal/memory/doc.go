// Package memory owns raw memory reservation and the bump arena built on it.
//
// Ownership boundary:
// - virtual-memory reserve/release primitives
// - fixed-capacity arena with epoch reset
// - arena-relative spans handed to callers instead of pointers
//
// Memory handed out by an Arena is only valid until the next Clear. Spans
// remember the epoch they were allocated in and Bytes refuses to resolve a
// span from an older epoch.
package memory
