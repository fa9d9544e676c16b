/*
Package netstack holds the shared types of the kernel network subsystem.

This package is the leaf of the network stack: it defines the frame and
interface descriptors, the socket state, the socket domain/type/protocol
enumerations and the error taxonomy shared by the control plane
(pkg/netstack/stack), the protocol layers (ethernet, ip, udp, dns, tcp)
and the scheduler collaborator (pkg/process).

# Frames

A Frame is one link-layer unit of data with an owned payload buffer.
Exactly one component holds a frame at any time; ownership transfers at
each queue push or pop, and the final consumer releases the buffer
exactly once. Frames are never copied implicitly: the demultiplexer uses
Clone for its fan-out, because one inbound frame may match several
sockets and each consumer releases its own copy independently.

# Interfaces

An Interface is a network-capable device endpoint, physical or loopback,
with its own bounded transmit and receive queues. Interfaces are
enumerated once at boot and never destroyed or reconfigured afterwards.

# Sockets

A Socket is the per-handle state mutated by the socket API: domain, type
and protocol, the connected flag, the bound local port, the in-flight
outbound packet handles, and the pending-packet queue consumed by
blocking receive. Storage of sockets is the scheduler's concern
(pkg/process); this package only defines the state itself.
*/
package netstack
