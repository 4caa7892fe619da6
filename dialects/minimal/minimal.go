// Package minimal implements the MAVLink "minimal" dialect's single
// message, MessageHeartbeat (spec.md §6: "the built-in heartbeat is the
// MAVLink 'minimal' dialect heartbeat"). It exists so the heartbeat
// emitter (heartbeat.go) and the incoming-frame handler (incoming_handler.go)
// have something concrete to build and recognize without the node
// runtime depending on a full dialect generator.
package minimal

import (
	"encoding/binary"
	"fmt"

	"github.com/istalabs/maviola/message"
)

// HeartbeatMessageID is the MAVLink message id for HEARTBEAT.
const HeartbeatMessageID uint32 = 0

// crcExtraHeartbeat is the MAVLink CRC_EXTRA byte for HEARTBEAT, used to
// seed the frame checksum (wire.go).
const crcExtraHeartbeat byte = 50

// MavAutopilot enumerates MAV_AUTOPILOT values relevant to a node's own
// heartbeat (spec §6: "autopilot = Generic").
type MavAutopilot uint8

const (
	MavAutopilotGeneric MavAutopilot = 0
	MavAutopilotInvalid MavAutopilot = 8
)

// MavType enumerates MAV_TYPE values.
type MavType uint8

const (
	MavTypeGeneric MavType = 0
	MavTypeGCS     MavType = 6
)

// MavModeFlag enumerates MAV_MODE_FLAG bits; base_mode defaults to 0
// (spec §6: "base_mode = default").
type MavModeFlag uint8

// MavState enumerates MAV_STATE values.
type MavState uint8

const (
	MavStateUninit MavState = 0
	MavStateActive MavState = 4
)

// MessageHeartbeat is the minimal dialect's only message.
type MessageHeartbeat struct {
	Type           MavType
	Autopilot      MavAutopilot
	BaseMode       MavModeFlag
	CustomMode     uint32
	SystemStatus   MavState
	MavlinkVersion uint8
}

func (m *MessageHeartbeat) GetID() uint32 { return HeartbeatMessageID }

// Encode lays out fields in MAVLink's size-descending wire order: the
// one uint32 field first, then the five uint8 fields.
func (m *MessageHeartbeat) Encode() ([]byte, error) {
	buf := make([]byte, 9)
	binary.LittleEndian.PutUint32(buf[0:4], m.CustomMode)
	buf[4] = byte(m.Type)
	buf[5] = byte(m.Autopilot)
	buf[6] = byte(m.BaseMode)
	buf[7] = byte(m.SystemStatus)
	buf[8] = m.MavlinkVersion
	return buf, nil
}

func (m *MessageHeartbeat) Decode(payload []byte) error {
	if len(payload) < 9 {
		return fmt.Errorf("minimal: heartbeat payload too short: %d bytes", len(payload))
	}
	m.CustomMode = binary.LittleEndian.Uint32(payload[0:4])
	m.Type = MavType(payload[4])
	m.Autopilot = MavAutopilot(payload[5])
	m.BaseMode = MavModeFlag(payload[6])
	m.SystemStatus = MavState(payload[7])
	m.MavlinkVersion = payload[8]
	return nil
}

// Dialect is the minimal dialect, registered with its one message.
var Dialect = message.NewDialect("minimal", 3)

func init() {
	Dialect.Register(HeartbeatMessageID, crcExtraHeartbeat, func() message.Message {
		return &MessageHeartbeat{}
	})
}
