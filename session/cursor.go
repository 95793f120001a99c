package session

import "encoding/binary"

// cursor walks a packet buffer. The first out-of-bounds access records
// failErr and turns every later call into a no-op, so a whole field sequence
// can be read or written before checking err once.
type cursor struct {
	buf     []byte
	off     int
	err     error
	failErr error
}

func newReader(buf []byte) *cursor {
	return &cursor{buf: buf, failErr: ErrInvalidPacket}
}

func newWriter(buf []byte, off int) *cursor {
	return &cursor{buf: buf, off: off, failErr: ErrInvalidParameter}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.remaining() < n {
		c.err = c.failErr
		return nil
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) readByte() byte {
	if b := c.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (c *cursor) readUint16() uint16 {
	if b := c.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (c *cursor) readUint48() uint64 {
	if b := c.take(SessionIDSize); b != nil {
		return decodeUint48(b)
	}
	return 0
}

func (c *cursor) readBytes(n int) []byte {
	return c.take(n)
}

func (c *cursor) writeByte(v byte) {
	if b := c.take(1); b != nil {
		b[0] = v
	}
}

func (c *cursor) writeUint16(v uint16) {
	if b := c.take(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (c *cursor) writeUint48(v uint64) {
	if b := c.take(SessionIDSize); b != nil {
		encodeUint48(b, v)
	}
}

func (c *cursor) writeBytes(v []byte) {
	if b := c.take(len(v)); b != nil {
		copy(b, v)
	}
}

// zero writes n zero bytes.
func (c *cursor) zero(n int) {
	if b := c.take(n); b != nil {
		clear(b)
	}
}
