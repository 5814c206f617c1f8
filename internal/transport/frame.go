// Package transport implements the remote session protocol (§6 "Remote
// framed stream"): a small length-prefixed frame format over the
// checkout response, and the client that drives it.
package transport

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/report"
)

// Magic is the 4-byte prefix a checkout response begins with, before
// the first frame.
var Magic = [4]byte{'B', 'A', 'M', '1'}

// Kind identifies a frame's payload.
type Kind uint32

const (
	// KindStatus carries UTF-8 status text meant for display, one line
	// of progress per frame.
	KindStatus Kind = 1
	// KindPayload carries (a chunk of) the archive. The archive is
	// whatever follows verbatim to end-of-stream; its total length is
	// given by the last kind-2 frame's size field.
	KindPayload Kind = 2
)

// Frame is one `<u32 kind, u32 size, bytes>` unit of the checkout
// response stream.
type Frame struct {
	Kind Kind
	Data []byte
}

// ReadMagic consumes and validates the stream's leading 4-byte magic.
func ReadMagic(r io.Reader) error {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return report.New(report.IO, "", xerrors.Errorf("reading magic: %w", err))
	}
	if buf != Magic {
		return report.New(report.FormatInvalid, "", xerrors.Errorf("bad magic %x", buf))
	}
	return nil
}

// ReadFrame reads one frame header and its payload. io.EOF is returned
// verbatim when the stream ends cleanly between frames.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, report.New(report.IO, "", xerrors.Errorf("reading frame header: %w", err))
	}
	kind := Kind(binary.BigEndian.Uint32(header[0:4]))
	size := binary.BigEndian.Uint32(header[4:8])
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return Frame{}, report.New(report.IO, "", xerrors.Errorf("reading frame payload: %w", err))
	}
	return Frame{Kind: kind, Data: data}, nil
}

// WriteFrame writes one frame, for tests and for any local server stub.
func WriteFrame(w io.Writer, f Frame) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(f.Kind))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(f.Data)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(f.Data)
	return err
}

// DecodeCheckout reads a full checkout response: the magic, then every
// status frame (handed to onStatus as they arrive) up to and including
// the final kind-2 frame, whose payload is the archive. Per §6, a
// kind-2 frame's declared size is the total archive length and the
// bytes "follow verbatim to end-of-stream" — so once a kind-2 frame
// appears, the remainder of r is read in full and appended, rather than
// trusting any further frame headers to be present.
func DecodeCheckout(r io.Reader, onStatus func(string)) ([]byte, error) {
	if err := ReadMagic(r); err != nil {
		return nil, err
	}
	for {
		f, err := ReadFrame(r)
		if err == io.EOF {
			return nil, report.New(report.FormatInvalid, "", xerrors.Errorf("checkout stream ended without a payload frame"))
		}
		if err != nil {
			return nil, err
		}
		switch f.Kind {
		case KindStatus:
			if onStatus != nil {
				onStatus(string(f.Data))
			}
		case KindPayload:
			rest, err := io.ReadAll(r)
			if err != nil {
				return nil, report.New(report.IO, "", err)
			}
			return append(f.Data, rest...), nil
		default:
			return nil, report.New(report.FormatInvalid, "", xerrors.Errorf("unknown frame kind %d", f.Kind))
		}
	}
}
