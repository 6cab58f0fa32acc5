package handler

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rcarmo/go-fbtile/internal/fbtile"
)

// Wire sizes of the binary message headers.
const (
	RequestHeaderSize = 24
	ReplyHeaderSize   = 16
)

// UseDefault in the op or layout field of a request selects the value the
// connection was opened with.
const UseDefault = 0xff

// Request flags
const (
	FlagAuto = 1 << 0 // take the tiled layout from the modifier
)

// Reply status codes
const (
	StatusTiled = 0
	StatusPlain = 1
	StatusError = 2
)

var errShortMessage = errors.New("handler: message shorter than header")

// RequestHeader precedes the pixels of every frame sent to /convert.
// All fields are little-endian.
type RequestHeader struct {
	Op       uint8
	Layout   uint8
	Format   uint8
	Flags    uint8
	Width    uint32
	Height   uint32
	Stride   uint32
	Modifier uint64
}

// AppendRequest appends the encoded header and pixels to b.
func AppendRequest(b []byte, h RequestHeader, pixels []byte) []byte {
	b = append(b, h.Op, h.Layout, h.Format, h.Flags)
	b = binary.LittleEndian.AppendUint32(b, h.Width)
	b = binary.LittleEndian.AppendUint32(b, h.Height)
	b = binary.LittleEndian.AppendUint32(b, h.Stride)
	b = binary.LittleEndian.AppendUint64(b, h.Modifier)
	return append(b, pixels...)
}

// ParseRequest splits a message into its header and pixels. The pixels
// alias msg.
func ParseRequest(msg []byte) (RequestHeader, []byte, error) {
	if len(msg) < RequestHeaderSize {
		return RequestHeader{}, nil, fmt.Errorf("%w: %d bytes", errShortMessage, len(msg))
	}
	h := RequestHeader{
		Op:       msg[0],
		Layout:   msg[1],
		Format:   msg[2],
		Flags:    msg[3],
		Width:    binary.LittleEndian.Uint32(msg[4:]),
		Height:   binary.LittleEndian.Uint32(msg[8:]),
		Stride:   binary.LittleEndian.Uint32(msg[12:]),
		Modifier: binary.LittleEndian.Uint64(msg[16:]),
	}
	return h, msg[RequestHeaderSize:], nil
}

// Frame builds the frame described by h over pixels.
func (h RequestHeader) Frame(pixels []byte) (*fbtile.Frame, error) {
	f := &fbtile.Frame{
		Format:   fbtile.PixelFormat(h.Format),
		Width:    int(h.Width),
		Height:   int(h.Height),
		Stride:   int(h.Stride),
		Data:     pixels,
		Modifier: h.Modifier,
	}
	if f.Width == 0 || f.Height == 0 || f.Stride == 0 {
		return nil, fmt.Errorf("%w: %dx%d stride %d", fbtile.ErrInvalidGeometry, f.Width, f.Height, f.Stride)
	}
	if bpp := f.Format.BytesPerPixel(); bpp == 0 {
		return nil, fmt.Errorf("%w: pixel format %d", fbtile.ErrUnsupported, h.Format)
	} else if f.Stride < f.Width*bpp {
		return nil, fmt.Errorf("%w: stride %d narrower than %d pixels", fbtile.ErrInvalidGeometry, f.Stride, f.Width)
	}
	if need := f.Stride * f.Height; len(pixels) != need {
		return nil, fmt.Errorf("%w: %d pixel bytes, want %d", fbtile.ErrInvalidGeometry, len(pixels), need)
	}
	return f, nil
}

// ReplyHeader precedes the pixels or error text of every reply.
type ReplyHeader struct {
	Status   uint8
	Format   uint8
	Stride   uint32
	Modifier uint64
}

// AppendReply appends the encoded header and payload to b.
func AppendReply(b []byte, h ReplyHeader, payload []byte) []byte {
	b = append(b, h.Status, h.Format, 0, 0)
	b = binary.LittleEndian.AppendUint32(b, h.Stride)
	b = binary.LittleEndian.AppendUint64(b, h.Modifier)
	return append(b, payload...)
}

// ParseReply splits a reply into its header and payload.
func ParseReply(msg []byte) (ReplyHeader, []byte, error) {
	if len(msg) < ReplyHeaderSize {
		return ReplyHeader{}, nil, fmt.Errorf("%w: %d bytes", errShortMessage, len(msg))
	}
	h := ReplyHeader{
		Status:   msg[0],
		Format:   msg[1],
		Stride:   binary.LittleEndian.Uint32(msg[4:]),
		Modifier: binary.LittleEndian.Uint64(msg[8:]),
	}
	return h, msg[ReplyHeaderSize:], nil
}
