package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

type IPCClient struct {
	id           string
	config       types.IPCConfig
	conn         net.Conn
	receiveChan  chan types.IPCMessage
	sendChan     chan []byte
	handlers     map[string]HandlerFunc
	handlersLock sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	connected    atomic.Bool
	closeOnce    sync.Once
	logger       *logging.Logger
}

// NewIPCClient creates a client; call Connect before sending.
func NewIPCClient(config types.IPCConfig) *IPCClient {
	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := "client-" + uuid.NewString()
	return &IPCClient{
		id:          id,
		config:      config,
		receiveChan: make(chan types.IPCMessage, bufferSize),
		sendChan:    make(chan []byte, bufferSize),
		handlers:    make(map[string]HandlerFunc),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logging.GetLogger("ipc_client").With("client", id),
	}
}

func (c *IPCClient) ID() string { return c.id }

func (c *IPCClient) timeout() time.Duration {
	if c.config.Timeout > 0 {
		return c.config.Timeout
	}
	return 5 * time.Second
}

// Connect dials the server and starts the reader and writer.
func (c *IPCClient) Connect() error {
	address := net.JoinHostPort(c.config.Address, strconv.Itoa(c.config.Port))

	conn, err := net.DialTimeout("tcp", address, c.timeout())
	if err != nil {
		return fmt.Errorf("failed to connect to IPC server: %w", err)
	}
	c.conn = conn
	c.connected.Store(true)

	c.wg.Add(2)
	go c.receiveMessages()
	go c.sendMessages()

	c.logger.Info("Connected to IPC server", "address", address)
	return nil
}

func (c *IPCClient) IsConnected() bool {
	return c.connected.Load()
}

// Disconnect closes the connection and waits for the I/O goroutines. The
// Receive channel is closed once the reader has exited.
func (c *IPCClient) Disconnect() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.connected.Store(false)
		if c.conn != nil {
			c.conn.Close()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			c.logger.Info("Client disconnected")
		case <-time.After(3 * time.Second):
			c.logger.Warn("Client disconnect timeout, forcing shutdown")
		}
	})
}

// Send queues message for the server, filling in ID, source and timestamp
// when they are unset.
func (c *IPCClient) Send(message types.IPCMessage) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to server")
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Source == "" {
		message.Source = c.id
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	data, err := encode(message)
	if err != nil {
		return err
	}

	select {
	case c.sendChan <- data:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("client shutting down")
	case <-time.After(c.timeout()):
		return fmt.Errorf("send timeout")
	}
}

// SendPointer moves the remote pointer to p.
func (c *IPCClient) SendPointer(p types.Point2D) error {
	return c.Send(types.IPCMessage{Type: MessageTypePointer, Data: PointData(p)})
}

// SendCommand sends a message without payload, such as record or play.
func (c *IPCClient) SendCommand(messageType string) error {
	return c.Send(types.IPCMessage{Type: messageType})
}

// Receive yields messages without a registered handler.
func (c *IPCClient) Receive() <-chan types.IPCMessage {
	return c.receiveChan
}

// RegisterHandler routes messages of messageType to handler instead of Receive.
func (c *IPCClient) RegisterHandler(messageType string, handler HandlerFunc) {
	c.handlersLock.Lock()
	defer c.handlersLock.Unlock()
	c.handlers[messageType] = handler
}

func (c *IPCClient) receiveMessages() {
	defer c.wg.Done()
	defer close(c.receiveChan)

	decoder := json.NewDecoder(bufio.NewReader(c.conn))
	for {
		var message types.IPCMessage
		if err := decoder.Decode(&message); err != nil {
			switch {
			case c.ctx.Err() != nil:
			case errors.Is(err, io.EOF):
				c.logger.Info("Server disconnected")
			case errors.Is(err, net.ErrClosed):
				c.logger.Info("Connection closed")
			default:
				c.logger.Error("Receive error", "error", err)
			}
			c.connected.Store(false)
			return
		}

		c.routeMessage(message)
	}
}

func (c *IPCClient) sendMessages() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.sendChan:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout())); err != nil {
				c.connected.Store(false)
				return
			}
			if _, err := c.conn.Write(data); err != nil {
				if errors.Is(err, net.ErrClosed) {
					c.logger.Info("Connection closed during send")
				} else {
					c.logger.Error("Send error", "error", err)
				}
				c.connected.Store(false)
				return
			}
		}
	}
}

func (c *IPCClient) routeMessage(message types.IPCMessage) {
	c.handlersLock.RLock()
	handler, exists := c.handlers[message.Type]
	c.handlersLock.RUnlock()

	if exists {
		handler(message)
		return
	}

	select {
	case c.receiveChan <- message:
	case <-c.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		c.logger.Warn("Receive channel full, dropping message", "message_type", message.Type)
	}
}
