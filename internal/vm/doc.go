// Package vm implements the domain lifecycle controller: start, stop,
// reboot, delete with optional storage teardown, and the full provisioning
// workflow.
//
// The hypervisor owns all domain state. Every operation re-queries it
// immediately before acting and tolerates the answer changing between calls;
// a domain disappearing between lookup and action surfaces as a typed
// failure, never a crash.
//
// Provisioning spans the filesystem, two external tools, and hypervisor
// registration. There is no transaction: compensation is an explicit cleanup
// stack recorded as artifacts are created and unwound in reverse on the first
// failure. The rollback scope is deliberately limited to the artifacts this
// workflow created itself; a partially registered domain definition is
// reported for the operator to resolve, not undone.
package vm
