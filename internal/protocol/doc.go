// Package protocol owns the command-exchange wire contract shared by
// producers and consumers.
//
// Ownership boundary:
// - channel identifiers
// - protocol violation reporting
// - byte cursors (wire), log layout (cmdlog), command catalog (schema)
package protocol
