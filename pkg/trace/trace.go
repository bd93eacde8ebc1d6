package trace

import (
	"bytes"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

type Kind string

const (
	KindCreate  Kind = "create"
	KindDelete  Kind = "delete"
	KindSwitch  Kind = "switch"
	KindDelay   Kind = "delay"
	KindBlock   Kind = "block"
	KindWake    Kind = "wake"
	KindSuspend Kind = "suspend"
	KindResume  Kind = "resume"
)

// Event is one scheduling trace record.
type Event struct {
	ID         uint64 `codec:"id"`
	Tick       uint32 `codec:"tick"`
	Kind       Kind   `codec:"kind"`
	Task       string `codec:"task"`
	TaskNumber uint64 `codec:"task_number"`
	Priority   uint   `codec:"priority"`
	Detail     string `codec:"detail,omitempty"`
}

// Recorder persists trace events. Record is called from inside the
// scheduler's critical section and must not call back into the scheduler.
type Recorder interface {
	Record(ev Event) error
}

type NopRecorder struct{}

func (NopRecorder) Record(Event) error { return nil }

// Encode serializes ev with msgpack.
func Encode(ev *Event) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	hd := codec.MsgpackHandle{}
	enc := codec.NewEncoder(buf, &hd)
	if err := enc.Encode(ev); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode is the reverse of Encode.
func Decode(data []byte) (*Event, error) {
	var ev Event
	hd := codec.MsgpackHandle{}
	dec := codec.NewDecoder(bytes.NewReader(data), &hd)
	if err := dec.Decode(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
