// Package sender batches completed event.Records and ships them to a
// listener over a Unix socket. Framing is grounded on
// go/models/trace/tracefile.go: struc packs each value's fixed-width
// fields, and the packed stream as a whole is snappy-compressed before
// it hits the wire.
package sender

import (
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/novafacing/cannonball/event"
	"github.com/novafacing/cannonball/flagset"
)

// frameHeader precedes every packed record: its discriminator, then its
// Flag Set. The variant-specific payload follows the header.
type frameHeader struct {
	Kind  uint8
	Flags uint32
}

// encodeRecord packs rec's header and payload onto w.
func encodeRecord(w io.Writer, rec *event.Record) error {
	h := frameHeader{Kind: uint8(rec.Payload.Kind()), Flags: uint32(rec.Flags)}
	if err := struc.Pack(w, &h); err != nil {
		return errors.Wrap(err, "failed to pack frame header")
	}
	if err := struc.Pack(w, rec.Payload); err != nil {
		return errors.Wrapf(err, "failed to pack %s payload", rec.Payload.Kind())
	}
	return nil
}

// decodeRecord unpacks a single record from r. It exists so the batch
// format can be exercised round-trip in tests; the plugin itself never
// reads its own wire format back.
func decodeRecord(r io.Reader) (*event.Record, error) {
	var h frameHeader
	if err := struc.Unpack(r, &h); err != nil {
		return nil, errors.Wrap(err, "failed to unpack frame header")
	}
	var payload event.Payload
	switch event.Kind(h.Kind) {
	case event.KindLoad:
		p := &event.Load{}
		if err := struc.Unpack(r, p); err != nil {
			return nil, errors.Wrap(err, "failed to unpack Load payload")
		}
		payload = p
	case event.KindPc:
		p := &event.Pc{}
		if err := struc.Unpack(r, p); err != nil {
			return nil, errors.Wrap(err, "failed to unpack Pc payload")
		}
		payload = p
	case event.KindInstr:
		p := &event.Instr{}
		if err := struc.Unpack(r, p); err != nil {
			return nil, errors.Wrap(err, "failed to unpack Instr payload")
		}
		payload = p
	case event.KindMemAccess:
		p := &event.MemAccess{}
		if err := struc.Unpack(r, p); err != nil {
			return nil, errors.Wrap(err, "failed to unpack MemAccess payload")
		}
		payload = p
	case event.KindSyscall:
		p := &event.Syscall{}
		if err := struc.Unpack(r, p); err != nil {
			return nil, errors.Wrap(err, "failed to unpack Syscall payload")
		}
		payload = p
	default:
		return nil, errors.Errorf("unknown event kind %d on wire", h.Kind)
	}
	return &event.Record{Flags: flagset.Set(h.Flags), Payload: payload}, nil
}

// encodeBatch packs every record in batch, back to back, then
// snappy-compresses the result — the same shape as tracefile.go's
// struc.Pack-then-snappy.NewBufferedWriter pipeline, just collapsed to
// one in-memory buffer per batch instead of one long-lived stream.
func encodeBatch(batch []*event.Record) ([]byte, error) {
	var raw bytes.Buffer
	for _, rec := range batch {
		if err := encodeRecord(&raw, rec); err != nil {
			return nil, err
		}
	}
	var compressed bytes.Buffer
	zw := snappy.NewBufferedWriter(&compressed)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, errors.Wrap(err, "failed to compress batch")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to flush compressed batch")
	}
	return compressed.Bytes(), nil
}

// decodeBatch reverses encodeBatch, for tests.
func decodeBatch(data []byte) ([]*event.Record, error) {
	zr := snappy.NewReader(bytes.NewReader(data))
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, zr); err != nil {
		return nil, errors.Wrap(err, "failed to decompress batch")
	}
	var out []*event.Record
	for raw.Len() > 0 {
		rec, err := decodeRecord(&raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
