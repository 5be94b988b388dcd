package msg

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// MaxFrameBytes caps inbound frames. Chrome limits native-messaging
// messages to 1 MB toward the browser; the same bound inbound keeps a
// corrupt length prefix from allocating gigabytes.
const MaxFrameBytes = 1 << 20

// Conn is one native-messaging connection: 4-byte little-endian
// length-prefixed JSON frames in both directions. Writes are serialized so
// pushed commands can interleave with responses safely.
type Conn struct {
	r io.Reader

	mu sync.Mutex
	w  io.Writer
}

// NewConn wraps a reader/writer pair (stdin/stdout for a real host).
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{r: r, w: w}
}

// Read reads one frame and decodes it.
func (c *Conn) Read() (Request, error) {
	var req Request

	var header [4]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return req, err
	}
	size := binary.LittleEndian.Uint32(header[:])
	if size == 0 || size > MaxFrameBytes {
		return req, fmt.Errorf("frame size %d out of range", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return req, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("decode frame: %w", err)
	}
	return req, nil
}

// Write encodes v and writes it as one frame.
func (c *Conn) Write(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(header[:]); err != nil {
		return err
	}
	_, err = c.w.Write(body)
	return err
}

// Push sends an outbound command frame. Same as Write; the name documents
// intent at call sites.
func (c *Conn) Push(req Request) error {
	return c.Write(req)
}

// Serve reads frames until EOF or context cancellation, dispatching each
// through the router and writing the response. Malformed frames end the
// connection; the browser restarts the host on the next message.
func Serve(ctx context.Context, conn *Conn, router *Router, logger *zap.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := conn.Read()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		resp := router.Dispatch(ctx, req)
		if err := conn.Write(resp); err != nil {
			logger.Error("write response failed", zap.String("type", req.Type), zap.Error(err))
			return err
		}
	}
}

// encodePayload marshals a payload struct for an outbound Request.
func encodePayload(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
