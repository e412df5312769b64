// Package journal records every driver call as a CBOR event stream so a run can
// be inspected or replayed against another backend.
package journal

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/openpnp-go/controller/pkg/geometry"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create journal CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create journal CBOR decoder mode: %v", err))
	}
}

// Event is one driver call. Absent target axes are encoded as missing keys.
type Event struct {
	Timestamp   time.Time `cbor:"1,keyasint"`
	Op          string    `cbor:"2,keyasint"`
	Backend     string    `cbor:"3,keyasint,omitempty"`
	HeadID      string    `cbor:"4,keyasint,omitempty"`
	MountableID string    `cbor:"5,keyasint,omitempty"`

	X        *float64 `cbor:"6,keyasint,omitempty"`
	Y        *float64 `cbor:"7,keyasint,omitempty"`
	Z        *float64 `cbor:"8,keyasint,omitempty"`
	Rotation *float64 `cbor:"9,keyasint,omitempty"`
	Unit     string   `cbor:"10,keyasint,omitempty"`

	Speed   *float64 `cbor:"11,keyasint,omitempty"`
	Value   *float64 `cbor:"12,keyasint,omitempty"`
	On      *bool    `cbor:"13,keyasint,omitempty"`
	Enabled *bool    `cbor:"14,keyasint,omitempty"`

	Error string `cbor:"15,keyasint,omitempty"`
}

// SetTarget copies the axes of t into the event.
func (e *Event) SetTarget(t geometry.Target) {
	e.X = t.X.Ptr()
	e.Y = t.Y.Ptr()
	e.Z = t.Z.Ptr()
	e.Rotation = t.Rotation.Ptr()
	e.Unit = string(t.Unit)
}

// SetLocation records a resolved location as a fully specified target.
func (e *Event) SetLocation(l geometry.Location) {
	e.SetTarget(geometry.LocationTarget(l))
}

// Target rebuilds the move target recorded in the event.
func (e *Event) Target() geometry.Target {
	return geometry.Target{
		X:        geometry.AxisFromPtr(e.X),
		Y:        geometry.AxisFromPtr(e.Y),
		Z:        geometry.AxisFromPtr(e.Z),
		Rotation: geometry.AxisFromPtr(e.Rotation),
		Unit:     geometry.LengthUnit(e.Unit),
	}
}

// EncodeEvent encodes a single event.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes a single event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Writer appends events to an io.Writer. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	c   io.Closer
}

// NewWriter creates a Writer on w. If w is an io.Closer, Close closes it.
func NewWriter(w io.Writer) *Writer {
	jw := &Writer{enc: encMode.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		jw.c = c
	}
	return jw
}

// Write appends one event.
func (w *Writer) Write(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(event); err != nil {
		return fmt.Errorf("failed to write journal event: %w", err)
	}
	return nil
}

// Close closes the underlying writer if it is closable.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}

// Reader reads events written by a Writer.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a Reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: decMode.NewDecoder(r)}
}

// Next returns the next event or io.EOF at the end of the stream.
func (r *Reader) Next() (Event, error) {
	var event Event
	if err := r.dec.Decode(&event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// ReadAll reads every event from r.
func ReadAll(r io.Reader) ([]Event, error) {
	reader := NewReader(r)
	var events []Event
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, fmt.Errorf("failed to read journal event %d: %w", len(events), err)
		}
		events = append(events, event)
	}
}
