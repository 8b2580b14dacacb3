package socket

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/ratelimiter"
)

const (
	// frameHeaderSize is the little-endian u32 length prefix.
	frameHeaderSize = 4

	// frameMinimum is the smallest acceptable message: a bare PLDM header.
	frameMinimum = pldm.HeaderSize
)

// ErrFrameTooLarge is returned when a peer announces a message larger than
// MaxMessageSize. The connection is closed since the stream cannot be
// resynchronised.
var ErrFrameTooLarge = errors.New("frame exceeds maximum message size")

// connection serves one accepted socket.
type connection struct {
	adapter *Adapter
	id      string
	conn    net.Conn
	limiter *ratelimiter.RateLimiter
}

func newConnection(a *Adapter, id string, conn net.Conn) *connection {
	return &connection{
		adapter: a,
		id:      id,
		conn:    conn,
		limiter: ratelimiter.New(a.config.RateLimit.RequestsPerSecond, a.config.RateLimit.Burst),
	}
}

// Serve reads framed requests until the peer goes away, a timeout fires or
// ctx is cancelled. A panic in the handler closes this connection only.
func (c *connection) Serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in socket connection %s: %v", c.id, r)
		}
		_ = c.conn.Close()
	}()

	if c.limiter.Unlimited() {
		logger.Debug("Socket connection %s: no rate limit", c.id)
	} else {
		logger.Debug("Socket connection %s: rate limit %d req/s, burst %d",
			c.id, c.adapter.config.RateLimit.RequestsPerSecond, c.adapter.config.RateLimit.Burst)
	}

	c.resetIdle()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Socket connection %s closed: %v", c.id, ctx.Err())
			return
		default:
		}

		if err := c.handleRequest(ctx); err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("Socket connection %s closed by peer", c.id)
			case errors.As(err, &netErr) && netErr.Timeout():
				logger.Debug("Socket connection %s timed out: %v", c.id, err)
			case errors.Is(err, net.ErrClosed):
				logger.Debug("Socket connection %s closed locally", c.id)
			default:
				logger.Warn("Socket connection %s failed: %v", c.id, err)
			}
			return
		}

		c.resetIdle()
	}
}

func (c *connection) resetIdle() {
	if c.adapter.config.IdleTimeout <= 0 {
		return
	}
	if err := c.conn.SetDeadline(time.Now().Add(c.adapter.config.IdleTimeout)); err != nil {
		logger.Debug("Failed to set idle deadline on %s: %v", c.id, err)
	}
}

// handleRequest reads one frame, answers it and writes the reply.
func (c *connection) handleRequest(ctx context.Context) error {
	msg, err := c.readFrame()
	if err != nil {
		return err
	}

	reply, err := c.answer(ctx, msg)
	if err != nil {
		logger.Debug("Dropping unanswerable message on %s: %v", c.id, err)
		return nil
	}
	if reply == nil {
		return nil
	}
	return c.writeFrame(reply)
}

// answer applies the rate limit and then hands msg to the responder.
func (c *connection) answer(ctx context.Context, msg []byte) ([]byte, error) {
	if !c.limiter.Allow() {
		req, err := pldm.ParseRequest(msg)
		if err != nil {
			return nil, err
		}
		logger.Debug("Rate limit exceeded on %s: command=0x%02X", c.id, req.Header.Command)
		return pldm.CCOnlyResponse(req, pldm.ErrorNotReady).Bytes(), nil
	}
	return c.adapter.handler.Handle(ctx, msg)
}

func (c *connection) readFrame() ([]byte, error) {
	var hdr [frameHeaderSize]byte

	// The idle deadline covers the wait for the next frame; once its first
	// byte arrives the read timeout takes over.
	if _, err := io.ReadFull(c.conn, hdr[:1]); err != nil {
		return nil, err
	}
	if t := c.adapter.config.ReadTimeout; t > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(t)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}
	if _, err := io.ReadFull(c.conn, hdr[1:]); err != nil {
		return nil, err
	}

	size := binary.LittleEndian.Uint32(hdr[:])
	if size > c.adapter.config.MaxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, c.adapter.config.MaxMessageSize)
	}

	msg := make([]byte, size)
	if _, err := io.ReadFull(c.conn, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *connection) writeFrame(reply []byte) error {
	if t := c.adapter.config.WriteTimeout; t > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(t)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	frame := binary.LittleEndian.AppendUint32(make([]byte, 0, frameHeaderSize+len(reply)), uint32(len(reply)))
	frame = append(frame, reply...)

	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}
