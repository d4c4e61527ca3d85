package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"dualstrusion-go/pkg/pool"
)

const (
	wsReadLimit   = 64 * 1024 * 1024 // two full toolpaths per request
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 30 * time.Second
	wsWriteWait   = 10 * time.Second
	wsSendBacklog = 64
)

// WSClient represents a WebSocket client connection.
type WSClient struct {
	id     int64
	conn   *websocket.Conn
	server *Server
	sendCh chan any
	done   chan struct{}
	mu     sync.Mutex
}

func (s *Server) newWSClient(conn *websocket.Conn) *WSClient {
	return &WSClient{
		id:     atomic.AddInt64(&s.nextWSID, 1),
		conn:   conn,
		server: s,
		sendCh: make(chan any, wsSendBacklog),
		done:   make(chan struct{}),
	}
}

// Send queues a message for the client. Messages to a slow client are
// dropped once its backlog is full.
func (c *WSClient) Send(msg any) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	default:
		c.server.log.Warn("dropping message to client %d (channel full)", c.id)
	}
}

// Close closes the client connection.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.conn.Close()
}

// readPump reads requests until the connection drops.
func (c *WSClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Warn("websocket read error: %v", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump sends queued messages and keeps the connection alive.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			if err := c.write(msg); err != nil {
				c.server.log.Warn("websocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// write encodes msg into a pooled buffer and sends it as one text frame.
func (c *WSClient) write(msg any) error {
	buf := pool.GetByteBuffer()
	defer pool.PutByteBuffer(buf)
	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var req jsonRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError(nil, codeParseError, "Parse error")
		return
	}

	result, err := c.server.dispatchMethod(req.Method, req.Params)
	if err != nil {
		c.sendError(req.ID, errorCode(err), err.Error())
		return
	}
	c.Send(jsonRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	})
}

func (c *WSClient) sendError(id any, code int, message string) {
	c.Send(jsonRPCResponse{
		JSONRPC: "2.0",
		Error:   &jsonRPCError{Code: code, Message: message},
		ID:      id,
	})
}

// handleWebSocket upgrades the connection and serves it until it closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error: %v", err)
		return
	}

	client := s.newWSClient(conn)
	s.wsClientMu.Lock()
	s.wsClients[client.id] = client
	s.metrics.WebSocketClients.Set(nil, float64(len(s.wsClients)))
	s.wsClientMu.Unlock()
	s.log.Debug("websocket client %d connected", client.id)

	go client.writePump()
	client.readPump()
}

func (s *Server) removeClient(client *WSClient) {
	s.wsClientMu.Lock()
	delete(s.wsClients, client.id)
	s.metrics.WebSocketClients.Set(nil, float64(len(s.wsClients)))
	s.wsClientMu.Unlock()
	s.log.Debug("websocket client %d disconnected", client.id)
}

// broadcast sends a JSON-RPC notification to every connected client.
func (s *Server) broadcast(method string, params ...any) {
	notification := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}

	s.wsClientMu.RLock()
	defer s.wsClientMu.RUnlock()
	for _, client := range s.wsClients {
		client.Send(notification)
	}
}
