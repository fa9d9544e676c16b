/*
Package stack is the control plane of the kernel network subsystem: it
owns the interface registry, the socket API, the packet pipeline, the
per-interface receive/transmit pumps and the inbound demultiplexer.

# Boot sequence

Init enumerates network-class PCI devices, binds recognized drivers,
assigns the configured address and gateway, publishes each interface's
diagnostic attributes, and always appends the synthetic loopback
interface. Finalize, called once the scheduler is up, spawns the two
long-lived pump tasks of every enabled interface.

# Data paths

Send: a caller prepares a packet (protocol headers written into its
buffer), writes its payload, then finalizes it; the finalizer computes
checksums and pushes the frame onto the chosen interface's transmit
queue, from which the TX pump hands it to the hardware-send hook.

Receive: the driver injects a frame into the interface's receive queue;
the RX pump decodes it layer by layer and the demultiplexer copies the
frame to every listening socket whose filter matches, waking blocked
receivers.
*/
package stack
