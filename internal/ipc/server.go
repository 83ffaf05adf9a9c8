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
	"time"

	"github.com/google/uuid"

	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

type Client struct {
	ID        string
	Conn      net.Conn
	Send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

type HandlerFunc func(types.IPCMessage)

type IPCServer struct {
	config         types.IPCConfig
	clients        map[string]*Client
	clientsLock    sync.RWMutex
	handlers       map[string]HandlerFunc
	defaultHandler HandlerFunc
	handlersLock   sync.RWMutex
	listener       net.Listener
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	logger         *logging.Logger
}

// NewIPCServer creates a server; nothing listens until Start.
func NewIPCServer(config types.IPCConfig) *IPCServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &IPCServer{
		config:   config,
		clients:  make(map[string]*Client),
		handlers: make(map[string]HandlerFunc),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logging.GetLogger("ipc_server"),
	}
}

// Start listens and accepts clients in the background.
func (s *IPCServer) Start() error {
	address := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	s.listener = listener

	s.logger.Info("IPC server started", "address", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *IPCServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every client and waits for their goroutines.
func (s *IPCServer) Stop() error {
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.clientsLock.Lock()
	for _, client := range s.clients {
		s.closeClient(client)
	}
	s.clients = make(map[string]*Client)
	s.clientsLock.Unlock()

	s.wg.Wait()
	s.logger.Info("IPC server stopped")
	return nil
}

// closeClient is safe to call more than once. Send is never closed; writers
// exit on the closed channel instead.
func (s *IPCServer) closeClient(client *Client) {
	client.closeOnce.Do(func() {
		close(client.closed)
		if client.Conn != nil {
			client.Conn.Close()
		}
		s.logger.Debug("Client closed", "client", client.ID)
	})
}

func (s *IPCServer) removeClient(client *Client) {
	s.closeClient(client)

	s.clientsLock.Lock()
	if s.clients[client.ID] == client {
		delete(s.clients, client.ID)
	}
	s.clientsLock.Unlock()
}

func (s *IPCServer) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Accept error", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		bufferSize := s.config.BufferSize
		if bufferSize <= 0 {
			bufferSize = 1
		}
		client := &Client{
			ID:     "client-" + uuid.NewString(),
			Conn:   conn,
			Send:   make(chan []byte, bufferSize),
			closed: make(chan struct{}),
		}

		s.clientsLock.Lock()
		s.clients[client.ID] = client
		s.clientsLock.Unlock()

		s.wg.Add(2)
		go s.handleClient(client)
		go s.sendToClient(client)

		s.logger.Info("Client connected", "client", client.ID, "remote", conn.RemoteAddr().String())
	}
}

func (s *IPCServer) handleClient(client *Client) {
	defer s.wg.Done()
	defer s.removeClient(client)

	decoder := json.NewDecoder(bufio.NewReader(client.Conn))

	for {
		var message types.IPCMessage
		if err := decoder.Decode(&message); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.logger.Info("Client disconnected", "client", client.ID)
			case errors.Is(err, net.ErrClosed):
			default:
				s.logger.Warn("Client decode error", "client", client.ID, "error", err)
			}
			return
		}

		message.Source = client.ID
		if message.ID == "" {
			message.ID = uuid.NewString()
		}
		s.routeMessage(message)
	}
}

func (s *IPCServer) sendToClient(client *Client) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-client.closed:
			return
		case data := <-client.Send:
			if err := client.Conn.SetWriteDeadline(time.Now().Add(s.writeTimeout())); err != nil {
				s.removeClient(client)
				return
			}
			if _, err := client.Conn.Write(data); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					s.logger.Warn("Send to client failed", "client", client.ID, "error", err)
				}
				s.removeClient(client)
				return
			}
		}
	}
}

func (s *IPCServer) writeTimeout() time.Duration {
	if s.config.Timeout > 0 {
		return s.config.Timeout
	}
	return 10 * time.Second
}

func (s *IPCServer) routeMessage(message types.IPCMessage) {
	s.handlersLock.RLock()
	handler, exists := s.handlers[message.Type]
	if !exists {
		handler = s.defaultHandler
	}
	s.handlersLock.RUnlock()

	if handler == nil {
		s.logger.Debug("Unhandled message", "type", message.Type, "client", message.Source)
		return
	}
	handler(message)
}

func encode(message types.IPCMessage) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return append(data, '\n'), nil
}

// Broadcast queues message for every client. Clients with a full buffer miss
// it; Broadcast never blocks.
func (s *IPCServer) Broadcast(message types.IPCMessage) error {
	data, err := encode(message)
	if err != nil {
		return err
	}

	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()

	for _, client := range s.clients {
		select {
		case client.Send <- data:
		case <-client.closed:
		default:
			s.logger.Debug("Client send buffer full", "client", client.ID, "type", message.Type)
		}
	}
	return nil
}

// SendToClient queues message for one client, waiting up to the write timeout.
func (s *IPCServer) SendToClient(clientID string, message types.IPCMessage) error {
	data, err := encode(message)
	if err != nil {
		return err
	}

	s.clientsLock.RLock()
	client, exists := s.clients[clientID]
	s.clientsLock.RUnlock()

	if !exists {
		return fmt.Errorf("client not found: %s", clientID)
	}

	select {
	case client.Send <- data:
		return nil
	case <-client.closed:
		return fmt.Errorf("client closed: %s", clientID)
	case <-time.After(s.writeTimeout()):
		return fmt.Errorf("send timeout for client: %s", clientID)
	}
}

func (s *IPCServer) ClientCount() int {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	return len(s.clients)
}

// RegisterHandler routes inbound messages of messageType to handler.
func (s *IPCServer) RegisterHandler(messageType string, handler HandlerFunc) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.handlers[messageType] = handler
}

// SetDefaultHandler receives messages with no registered handler.
func (s *IPCServer) SetDefaultHandler(handler HandlerFunc) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.defaultHandler = handler
}
