// Package vm hosts modules and moves commands between them.
//
// Ownership boundary:
// - module registry and per-module state (command logs, scratch arena, timing)
// - the bus producers use to append commands to any module's logs
// - the tick loop: drain logic, step, render, hand render buffers to a consumer
// - VM lifecycle: boot -> initialized -> shutdown
//
// A VM is an explicit value. Several VMs can live in one process; nothing in
// this package is global apart from prometheus collectors.
package vm
