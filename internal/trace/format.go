package trace

import (
	"bytes"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap/zapcore"
)

// Format is the encoding of trace output.
type Format uint8

const (
	FormatAuto    Format = iota // pick from the output path
	FormatText                  // console lines
	FormatNDJSON                // one JSON object per line
	FormatMsgpack               // a stream of msgpack maps, see ReadMsgpack
)

// FormatFor picks the format for an output path by its extension.
func FormatFor(path string) Format {
	switch {
	case strings.HasSuffix(path, ".ndjson"), strings.HasSuffix(path, ".jsonl"):
		return FormatNDJSON
	case strings.HasSuffix(path, ".msgpack"), strings.HasSuffix(path, ".mp"):
		return FormatMsgpack
	default:
		return FormatText
	}
}

// encoder turns events into output records. It is not safe for concurrent
// use; stream tracers serialize calls under their lock.
type encoder struct {
	format Format
	zap    zapcore.Encoder
	buf    bytes.Buffer
	mp     *msgpack.Encoder
}

func newEncoder(format Format) *encoder {
	e := &encoder{format: format}
	switch format {
	case FormatMsgpack:
		e.mp = msgpack.NewEncoder(&e.buf)
	case FormatNDJSON:
		e.zap = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "time",
			NameKey:        "scope",
			MessageKey:     "name",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.NanosDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		})
	default:
		e.zap = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			NameKey:          "scope",
			MessageKey:       "name",
			ConsoleSeparator: " ",
			LineEnding:       zapcore.DefaultLineEnding,
			EncodeDuration:   zapcore.StringDurationEncoder,
			EncodeName:       zapcore.FullNameEncoder,
		})
	}
	return e
}

// encode returns the record for ev. The slice is valid until the next call.
func (e *encoder) encode(ev *Event) ([]byte, error) {
	if e.mp != nil {
		e.buf.Reset()
		if err := e.mp.Encode(ev); err != nil {
			return nil, errors.Wrap(err, "encode trace event")
		}
		return e.buf.Bytes(), nil
	}

	enc := e.zap.Clone()
	if err := ev.MarshalLogObject(enc); err != nil {
		return nil, err
	}
	msg := ev.Name
	if e.format != FormatNDJSON {
		msg = ev.Kind.arrow() + " " + ev.Name
		if ev.ParentID != 0 {
			msg = "  " + msg
		}
	}
	out, err := enc.EncodeEntry(zapcore.Entry{
		Time:       ev.Time,
		LoggerName: ev.Scope.String(),
		Message:    msg,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "encode trace event")
	}
	e.buf.Reset()
	e.buf.Write(out.Bytes())
	out.Free()
	return e.buf.Bytes(), nil
}

// Encode renders a single event in format.
func Encode(ev *Event, format Format) ([]byte, error) {
	b, err := newEncoder(format).encode(ev)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

// ReadMsgpack decodes a FormatMsgpack stream back into events.
func ReadMsgpack(r io.Reader) ([]Event, error) {
	dec := msgpack.NewDecoder(r)
	var events []Event
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, errors.Wrapf(err, "decode trace event %d", len(events))
		}
		events = append(events, ev)
	}
}
