package netstack

// Number of header tags carried by a frame: link, network, transport
// and application layer offsets.
const frameTags = 4

// Tag indices into a frame's header-offset table.
const (
	TagLink      = 0
	TagNetwork   = 1
	TagTransport = 2
	TagApp       = 3
)

// Frame is one link-layer unit of data. The payload buffer is owned:
// exactly one component holds the frame at any time, ownership moves at
// every queue push/pop, and the final consumer calls Release exactly
// once. Use Clone when a frame must fan out to several consumers.
type Frame struct {
	// Payload is the owned buffer holding the whole frame, headers
	// included. Nil after Release.
	Payload []byte

	// Index is the current payload offset: on the encode path it is
	// where the caller writes application data, on the decode path it
	// advances past each parsed header.
	Index int

	// Interface is the id of the originating or target interface.
	Interface int

	// FD is the per-socket packet handle once the frame is registered
	// with a socket, 0 otherwise.
	FD int

	// User marks frames whose payload aliases a user-supplied buffer.
	// User frames never reach an interface transmit queue; the link
	// layer clones them into kernel-owned buffers first.
	User bool

	tags [frameTags]int
}

// Tag returns the recorded offset of the given header layer.
func (f *Frame) Tag(layer int) int {
	return f.tags[layer]
}

// SetTag records the payload offset of the given header layer.
func (f *Frame) SetTag(layer, offset int) {
	f.tags[layer] = offset
}

// Len returns the payload length in bytes.
func (f *Frame) Len() int {
	return len(f.Payload)
}

// Clone returns a kernel-owned deep copy of the frame with the same
// tags and index. The copy is released independently of the original.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Payload:   make([]byte, len(f.Payload)),
		Index:     f.Index,
		Interface: f.Interface,
		User:      false,
		tags:      f.tags,
	}
	copy(c.Payload, f.Payload)
	return c
}

// Release drops the payload buffer. Releasing twice, or using the
// frame after release, is a bug in the caller; the nil payload makes
// it fail loudly.
func (f *Frame) Release() {
	f.Payload = nil
}
