package protocol

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"
)

type MessageHandler func([]byte) error

// Router dispatches messages to the handler registered for their type.
type Router struct {
	messageHandlers map[MessageType]MessageHandler
}

func NewRouter() *Router {
	return &Router{messageHandlers: make(map[MessageType]MessageHandler)}
}

func (r *Router) RegisterHandler(msgType MessageType, handlerFunc MessageHandler) {
	r.messageHandlers[msgType] = handlerFunc
}

func (r *Router) HandleMessage(bytes []byte) error {
	if len(bytes) == 0 {
		return fmt.Errorf("Cannot handle empty message")
	}
	msgType := MessageType(bytes[0])
	handlerFunc, exists := r.messageHandlers[msgType]
	if !exists {
		return fmt.Errorf("No handler registered for message type: %d", msgType)
	}
	return handlerFunc(bytes)
}

// Conn is a framed, synchronous connection to a game server.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
	// Timeout bounds each Send and Receive when non-zero
	Timeout time.Duration
}

func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, reader: bufio.NewReader(conn)}
}

func Dial(ctx context.Context, address string) (*Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return NewConn(conn), nil
}

func (c *Conn) deadline() time.Time {
	if c.Timeout == 0 {
		return time.Time{}
	}
	return time.Now().Add(c.Timeout)
}

func (c *Conn) Send(message []byte) error {
	if err := c.conn.SetWriteDeadline(c.deadline()); err != nil {
		return err
	}
	_, err := c.conn.Write(message)
	return err
}

func (c *Conn) Receive() ([]byte, error) {
	if err := c.conn.SetReadDeadline(c.deadline()); err != nil {
		return nil, err
	}
	return ReadMessage(c.reader)
}

func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *Conn) Close() error {
	return c.conn.Close()
}
