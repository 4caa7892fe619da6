package maviola

import (
	"strconv"

	"github.com/pion/logging"
	"go.bug.st/serial"
)

const defaultSerialBaud = 57600

// Serial is a single repairable channel over a local serial device (spec
// §6 "Serial"). Repairable is true: a disconnected USB-serial adapter is
// the canonical case the Network's retry policy exists for.
type Serial struct {
	Device string
	Baud   int

	LoggerFactory logging.LoggerFactory
}

func (s *Serial) Info() ConnectionInfo {
	baud := s.Baud
	if baud <= 0 {
		baud = defaultSerialBaud
	}
	return ConnectionInfo{Kind: "serial", Params: map[string]string{
		"device": s.Device,
		"baud":   strconv.Itoa(baud),
	}}
}

func (s *Serial) Repairable() bool { return true }

func (s *Serial) Build(factory *ChannelFactory) error {
	baud := s.Baud
	if baud <= 0 {
		baud = defaultSerialBaud
	}
	port, err := serial.Open(s.Device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return &BuildError{Transport: "serial", Err: err}
	}
	info := ChannelInfo{Kind: "serial", Params: map[string]string{"device": s.Device}}
	factory.BuildSoleChannel(info, NewStreamSender(port, factory.Dialects()), NewStreamReceiver(port, factory.Dialects()))
	return nil
}
