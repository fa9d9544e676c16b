/*
Package process is the scheduler collaborator of the kernel: it owns the
fixed table of process slots, spawns long-lived kernel tasks on
dedicated goroutines, and stores each process's socket table.

The network subsystem consumes three contracts from this package:

  - task creation: CreateKernelTask starts a named, prioritized,
    system-owned task that runs for the lifetime of the kernel;
  - process-state enumeration: State reports each slot's lifecycle
    state so the packet demultiplexer can skip empty, new and killed
    slots;
  - the socket table: per-process maps from a file-descriptor-like
    handle to socket state, with install/lookup/release/enumerate.

Sockets themselves are defined by pkg/netstack; this package only
stores them.
*/
package process
