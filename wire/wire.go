// Package wire defines the closed vocabularies of the EasyWave RX22
// gateway protocol: command codes, status codes, notification info-types
// and the function-byte bit layout. Nothing here touches a byte stream;
// it is the shared alphabet that codec, protocol and notify build on.
package wire

import "fmt"

// Command identifies the operation carried by the first octet of an
// Initial Request Packet.
type Command byte

// The closed set of command codes understood by the module.
const (
	CmdSendCommand         Command = 0x02 // TX only
	CmdJoinDevice          Command = 0x04
	CmdRemoveDevice        Command = 0x05
	CmdClearFilter         Command = 0x06
	CmdAddFilter           Command = 0x07
	CmdReceiveNotification Command = 0x08
	CmdChangeState         Command = 0x09
	CmdQueryState          Command = 0x0A
	CmdLearnControl        Command = 0x0B
	CmdGetSerial           Command = 0x21 // GetFdSerial / GetTxSerial
)

func (c Command) String() string {
	switch c {
	case CmdSendCommand:
		return "SendCommand"
	case CmdJoinDevice:
		return "JoinDevice"
	case CmdRemoveDevice:
		return "RemoveDevice"
	case CmdClearFilter:
		return "ClearFilter"
	case CmdAddFilter:
		return "AddFilter"
	case CmdReceiveNotification:
		return "ReceiveNotification"
	case CmdChangeState:
		return "ChangeState"
	case CmdQueryState:
		return "QueryState"
	case CmdLearnControl:
		return "LearnControl"
	case CmdGetSerial:
		return "GetSerial"
	default:
		return fmt.Sprintf("Command(0x%02X)", byte(c))
	}
}

// Status is the one-octet result code carried at offset 2 of an
// Intermediate Completion Packet.
type Status byte

// The closed set of status codes the module may report.
const (
	StatusSuccess           Status = 0x00
	StatusCanceled          Status = 0x01
	StatusOutOfQueue        Status = 0x02
	StatusInvalidRequest    Status = 0x03
	StatusSizeMismatch      Status = 0x04
	StatusInvalidParam      Status = 0x05
	StatusIncompleteFw      Status = 0x06
	StatusTimeout           Status = 0x07
	StatusInvalidSerial     Status = 0x08
	StatusSuperseded        Status = 0x09
	StatusIncompatFW        Status = 0x0A
	StatusSerialFilter      Status = 0x0B
	StatusFilterOutOfMemory Status = 0x0C
	StatusMemory            Status = 0x0D
	StatusTooLate           Status = 0x0E
)

var statusNames = map[Status]string{
	StatusSuccess:           "Success",
	StatusCanceled:          "Canceled",
	StatusOutOfQueue:        "OutOfQueue",
	StatusInvalidRequest:    "InvalidRequest",
	StatusSizeMismatch:      "SizeMismatch",
	StatusInvalidParam:      "InvalidParam",
	StatusIncompleteFw:      "IncompleteFw",
	StatusTimeout:           "Timeout",
	StatusInvalidSerial:     "InvalidSerial",
	StatusSuperseded:        "Superseded",
	StatusIncompatFW:        "IncompatFW",
	StatusSerialFilter:      "SerialFilter",
	StatusFilterOutOfMemory: "FilterOutOfMemory",
	StatusMemory:            "Memory",
	StatusTooLate:           "TooLate",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(0x%02X)", byte(s))
}

// OK reports whether the status represents success.
func (s Status) OK() bool { return s == StatusSuccess }

// InfoType classifies a Receive-Notification ICP's payload.
type InfoType byte

// The closed set of notification info-types.
const (
	InfoRelease       InfoType = 0x00
	InfoPushAndHold   InfoType = 0x01
	InfoSensor        InfoType = 0x02
	InfoStateChange   InfoType = 0x03
	InfoLearnStart    InfoType = 0x40
	InfoLearnComplete InfoType = 0x41
	InfoLearnFail     InfoType = 0x42
)

func (i InfoType) String() string {
	switch i {
	case InfoRelease:
		return "Release"
	case InfoPushAndHold:
		return "PushAndHold"
	case InfoSensor:
		return "Sensor"
	case InfoStateChange:
		return "StateChange"
	case InfoLearnStart:
		return "LearnStart"
	case InfoLearnComplete:
		return "LearnComplete"
	case InfoLearnFail:
		return "LearnFail"
	default:
		return fmt.Sprintf("InfoType(0x%02X)", byte(i))
	}
}

// Button identifies one of the four buttons packed into a function byte.
type Button byte

// The four buttons a transmitter or notification may reference.
const (
	ButtonA Button = 0
	ButtonB Button = 1
	ButtonC Button = 2
	ButtonD Button = 3
)

// Function identifies the action packed into the high 6 bits of a
// function byte.
type Function byte

// The closed set of functions.
const (
	FuncDefault           Function = 0x00
	FuncRemoteLearnDelete Function = 0x01
	FuncRemoteLearnAdd    Function = 0x02
	FuncRemoteLearnReset  Function = 0x03
	FuncRemoteLearnSetTmr Function = 0x04
	FuncEmulatedHold      Function = 0x05
	FuncEmulatedRelease   Function = 0x06
	FuncLowBattery        Function = 0x20
)

// BuildFunctionByte packs button (low 2 bits) and function (high 6 bits)
// into a single wire octet.
func BuildFunctionByte(button Button, function Function) byte {
	return byte(function&0x3F)<<2 | byte(button&0x03)
}

// SplitFunctionByte unpacks a wire octet into its button and function.
func SplitFunctionByte(b byte) (Button, Function) {
	return Button(b & 0x03), Function(b >> 2 & 0x3F)
}

// SerialLen is the fixed length of a device serial.
const SerialLen = 16

// StateLen is the fixed length of a state vector.
const StateLen = 4

// NotificationLen is the fixed length of a decoded Receive-Notification
// completion payload: Handle(2) Status(1) InfoType(1) Serial(16) Additional(8).
const NotificationLen = 28

// Handle is the opaque 16-bit correlator linking an IPP to its ICP.
// Handle 0 denotes a synchronous, one-shot completion.
type Handle uint16

// SyncHandle is the sentinel handle value used for synchronous completions.
const SyncHandle Handle = 0

// SOP, EOP and ESC are the three octets the byte-stuffing codec treats
// specially: frame start, frame end, and escape.
const (
	SOP byte = 0x81
	EOP byte = 0x82
	ESC byte = 0x80
)

// Notification is the decoded form of a Receive-Notification completion:
// Handle(2) Status(1) InfoType(1) Serial(16) Additional(8).
type Notification struct {
	Handle     Handle
	Status     Status
	Info       InfoType
	Serial     [SerialLen]byte
	Additional [8]byte
}

