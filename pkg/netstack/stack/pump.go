package stack

import (
	"go.uber.org/zap"

	"helios/pkg/netstack"
)

// rxPump is the long-lived receive task of one interface: it blocks
// until a frame is available, decodes it, then releases the buffer.
// Decode failures are the decoder's concern; the pump never inspects
// outcomes.
func (s *Stack) rxPump(iface *netstack.Interface) {
	s.log.Debug("rx pump started",
		zap.String("interface", iface.Name), zap.Int("pid", iface.RxTaskPID))

	for {
		f := iface.NextInbound()
		s.decode(iface, f)
		f.Release()
	}
}

// txPump is the long-lived transmit task of one interface: it blocks
// until a frame is queued, hands it to the hardware-send hook
// synchronously, then releases the buffer. User-owned frames must
// never reach this queue; the link layer clones them.
func (s *Stack) txPump(iface *netstack.Interface) {
	s.log.Debug("tx pump started",
		zap.String("interface", iface.Name), zap.Int("pid", iface.TxTaskPID))

	for {
		f := iface.NextOutbound()
		iface.HWSend(iface, f)
		if f.User {
			s.log.DPanic("user-owned frame on transmit queue",
				zap.String("interface", iface.Name))
		}
		f.Release()
	}
}
