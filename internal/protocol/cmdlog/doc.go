// Package cmdlog implements the length-prefixed command log two modules use
// to exchange commands through a shared arena.
//
// Layout, in the byte order of the log's cursors:
//
//	header: u64 command_count | u64 owner_len | owner bytes
//	record: u64 command_id | u64 payload_len | payload
//
// Records are appended in two phases: the length field is written as a
// placeholder, the payload is streamed in, and the length is patched once
// the payload writer returns. A record whose payload ran out of arena space
// is sealed with command id schema.Dropped so framing stays intact; the
// same happens when the payload writer panics. Producers cannot push
// schema.Dropped themselves.
//
// Close waits for an open record, then makes every operation fail with
// ErrClosed so the backing memory can be released.
package cmdlog
