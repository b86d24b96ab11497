// Package airsim implements an environment.Environment over the
// msgpack-rpc API of an AirSim car simulation
package airsim

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// msgpack-rpc message types
const (
	request  = 0
	response = 1
)

// RPCError is an error reported by the simulator for a call
type RPCError struct {
	Method string
	Err    interface{}
}

func (r *RPCError) Error() string {
	return fmt.Sprintf("%v: simulator error: %v", r.Method, r.Err)
}

// conn is a msgpack-rpc connection. Calls are serialized and each one
// has its own deadline.
type conn struct {
	mu      sync.Mutex
	c       net.Conn
	enc     *msgpack.Encoder
	dec     *msgpack.Decoder
	w       *bufio.Writer
	timeout time.Duration
	msgID   uint32
}

func dial(ctx context.Context, address string, timeout time.Duration) (*conn,
	error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return newConn(c, timeout), nil
}

func newConn(c net.Conn, timeout time.Duration) *conn {
	w := bufio.NewWriter(c)
	return &conn{
		c:       c,
		enc:     msgpack.NewEncoder(w),
		dec:     msgpack.NewDecoder(bufio.NewReader(c)),
		w:       w,
		timeout: timeout,
	}
}

// call calls method with params and decodes the result into out. If
// out is nil the result is discarded.
func (c *conn) call(method string, out interface{}, params ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if params == nil {
		params = []interface{}{}
	}
	c.msgID++
	id := c.msgID

	if err := c.c.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}

	if err := c.enc.Encode([]interface{}{request, id, method, params}); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}

	n, err := c.dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 4 {
		return fmt.Errorf("%v: malformed response of %d fields", method, n)
	}

	msgType, err := c.dec.DecodeInt()
	if err != nil {
		return err
	}
	if msgType != response {
		return fmt.Errorf("%v: unexpected message type %d", method, msgType)
	}

	respID, err := c.dec.DecodeUint32()
	if err != nil {
		return err
	}
	if respID != id {
		return fmt.Errorf("%v: response id %d does not match request id %d",
			method, respID, id)
	}

	rpcErr, err := c.dec.DecodeInterface()
	if err != nil {
		return err
	}
	if rpcErr != nil {
		if err := c.dec.Skip(); err != nil {
			return err
		}
		return &RPCError{Method: method, Err: rpcErr}
	}

	if out == nil {
		return c.dec.Skip()
	}
	return c.dec.Decode(out)
}

func (c *conn) close() error {
	return c.c.Close()
}
