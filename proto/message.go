package proto

import (
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

type Command string

const (
	CommandStartVideo Command = "START_VIDEO"
	CommandStopVideo  Command = "STOP_VIDEO"
	CommandStop       Command = "STOP"
)

func (c Command) Known() bool {
	switch c {
	case CommandStartVideo, CommandStopVideo, CommandStop:
		return true
	}
	return false
}

// ParseCommands splits one raw read into command tokens. The earth side
// never sends a delimiter, so a single read normally yields one token.
func ParseCommands(chunk []byte) []Command {
	fields := strings.Fields(string(chunk))
	cmds := make([]Command, 0, len(fields))
	for _, f := range fields {
		cmds = append(cmds, Command(f))
	}
	return cmds
}

// DiagnosticCameraUnavailable is sent when the rover cannot open its capture device.
const DiagnosticCameraUnavailable = "Camera not available"

type Mode string

const (
	ModeRaw    Mode = "raw"    // bare frame payloads, unframed diagnostic
	ModeTagged Mode = "tagged" // every rover->earth message is a framed Envelope
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRaw, ModeTagged:
		return Mode(s), nil
	case "":
		return ModeRaw, nil
	}
	return "", fmt.Errorf("unknown wire mode %q (want %q or %q)", s, ModeRaw, ModeTagged)
}

const (
	KindFrame      = "frame"
	KindDiagnostic = "diagnostic"
)

type Envelope struct {
	Kind  string `cbor:"kind"`           // "frame" or "diagnostic"
	Seq   uint64 `cbor:"seq"`            // per-stream frame counter, starts at 1
	Taken int64  `cbor:"taken"`          // unix nanoseconds when the frame was captured
	Data  []byte `cbor:"data,omitempty"` // encoded frame
	Text  string `cbor:"text,omitempty"` // diagnostic text
}

func (e Envelope) TakenAt() time.Time {
	return time.Unix(0, e.Taken)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("proto: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("proto: CBOR decoder initialization failed: " + err.Error())
	}
}

func MarshalEnvelope(e Envelope) ([]byte, error) {
	return encMode.Marshal(e)
}

func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := decMode.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	return e, nil
}

func NewFrameEnvelope(seq uint64, taken time.Time, data []byte) Envelope {
	return Envelope{Kind: KindFrame, Seq: seq, Taken: taken.UnixNano(), Data: data}
}

func NewDiagnosticEnvelope(text string) Envelope {
	return Envelope{Kind: KindDiagnostic, Taken: time.Now().UnixNano(), Text: text}
}

// MDNSService is the service type rovers advertise and earth looks up.
const MDNSService = "_lunalink._tcp"
