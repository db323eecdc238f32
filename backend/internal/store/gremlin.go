package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socialgraph/backend/internal/query"
	apperrors "socialgraph/backend/pkg/errors"
)

// mimeType prefixes every request frame; Cosmos DB only accepts GraphSON v2
const mimeType = "application/vnd.gremlin-v2.0+json"

// Gremlin server status codes
const (
	statusSuccess        = 200
	statusNoContent      = 204
	statusPartialContent = 206
	statusAuthenticate   = 407
	statusServerTimeout  = 598
)

// Cosmos DB reports its own HTTP-like code in the status attributes
const cosmosStatusAttribute = "x-ms-status-code"

// GremlinConfig holds the immutable connection settings of a GremlinClient
type GremlinConfig struct {
	Endpoint       string // ws:// or wss:// URL
	Username       string
	Password       string
	RequestTimeout time.Duration
	Dialer         *websocket.Dialer // defaults to websocket.DefaultDialer
}

// GremlinClient speaks the Gremlin WebSocket protocol over a single shared
// session. Requests are multiplexed by request id.
type GremlinClient struct {
	cfg    GremlinConfig
	logger *zap.Logger

	mu      sync.Mutex // guards conn, pending and closed
	conn    *websocket.Conn
	pending map[string]*pendingRequest
	closed  bool

	writeMu sync.Mutex // gorilla allows one concurrent writer
}

type pendingRequest struct {
	op       query.Operation
	data     []any
	authSent bool
	done     chan error
}

type gremlinRequest struct {
	RequestID string         `json:"requestId"`
	Op        string         `json:"op"`
	Processor string         `json:"processor"`
	Args      map[string]any `json:"args"`
}

type gremlinResponse struct {
	RequestID string `json:"requestId"`
	Status    struct {
		Code       int            `json:"code"`
		Message    string         `json:"message"`
		Attributes map[string]any `json:"attributes"`
	} `json:"status"`
	Result struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
}

// NewGremlinClient creates a client. The session is dialled on first use.
func NewGremlinClient(cfg GremlinConfig, logger *zap.Logger) *GremlinClient {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &GremlinClient{
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]*pendingRequest),
	}
}

// Connect dials the session eagerly so startup fails fast on a bad endpoint
func (c *GremlinClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.connectLocked(ctx)
	return err
}

// connectLocked returns the live session, dialling a new one if the previous
// session was lost. c.mu must be held.
func (c *GremlinClient) connectLocked(ctx context.Context) (*websocket.Conn, error) {
	if c.closed {
		return nil, apperrors.NewStoreUnavailable(c.cfg.Endpoint, ErrClientClosed)
	}
	if c.conn != nil {
		return c.conn, nil
	}

	c.logger.Info("Connecting to Gremlin server", zap.String("endpoint", c.cfg.Endpoint))

	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(c.cfg.Endpoint, fmt.Errorf("failed to dial: %w", err))
	}

	c.conn = conn
	go c.readLoop(conn)

	return conn, nil
}

// Submit sends a script and waits for the complete result set
func (c *GremlinClient) Submit(ctx context.Context, stmt query.Statement) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable(c.cfg.Endpoint, err)
	}

	requestID := uuid.NewString()
	p := &pendingRequest{op: stmt.Op, done: make(chan error, 1)}

	c.mu.Lock()
	conn, err := c.connectLocked(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.pending[requestID] = p
	c.mu.Unlock()

	req := gremlinRequest{
		RequestID: requestID,
		Op:        "eval",
		Processor: "",
		Args: map[string]any{
			"gremlin":  stmt.Text,
			"language": "gremlin-groovy",
		},
	}
	if err := c.write(conn, req); err != nil {
		c.forget(requestID)
		c.dropConnection(conn, err)
		return nil, apperrors.NewStoreUnavailable(c.cfg.Endpoint, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case err := <-p.done:
		if err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(p.data))
		for _, v := range p.data {
			rows = append(rows, NewRow(v))
		}
		return rows, nil
	case <-ctx.Done():
		c.forget(requestID)
		return nil, apperrors.NewStoreUnavailable(c.cfg.Endpoint, ctx.Err())
	case <-timer.C:
		c.forget(requestID)
		return nil, apperrors.NewStoreUnavailable(c.cfg.Endpoint,
			fmt.Errorf("request timed out after %s", c.cfg.RequestTimeout))
	}
}

// Ping runs the cheapest traversal the server accepts
func (c *GremlinClient) Ping(ctx context.Context) error {
	_, err := c.Submit(ctx, query.Statement{
		Op:    query.OpPing,
		Text:  "g.V().limit(1).count()",
		Shape: query.ShapeCount,
	})
	return err
}

// Close closes the session and fails any request still in flight
func (c *GremlinClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.failPendingLocked(apperrors.NewStoreUnavailable(c.cfg.Endpoint, ErrClientClosed))
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	return conn.Close()
}

func (c *GremlinClient) write(conn *websocket.Conn, req gremlinRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var frame bytes.Buffer
	frame.WriteByte(byte(len(mimeType)))
	frame.WriteString(mimeType)
	frame.Write(payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.RequestTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Bytes()); err != nil {
		return fmt.Errorf("write request failed: %w", err)
	}
	return nil
}

// readLoop dispatches responses to their pending requests until the
// session fails
func (c *GremlinClient) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.dropConnection(conn, err)
			return
		}

		var resp gremlinResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			c.logger.Warn("Discarding undecodable Gremlin response", zap.Error(err))
			continue
		}
		c.handle(conn, &resp)
	}
}

func (c *GremlinClient) handle(conn *websocket.Conn, resp *gremlinResponse) {
	c.mu.Lock()
	p, ok := c.pending[resp.RequestID]
	c.mu.Unlock()
	if !ok {
		// caller already gave up on this request
		return
	}

	switch resp.Status.Code {
	case statusPartialContent:
		if err := p.appendData(resp.Result.Data); err != nil {
			c.finish(resp.RequestID, apperrors.NewQueryFailed(string(p.op), resp.Status.Code, err))
		}
	case statusSuccess, statusNoContent:
		var err error
		if resp.Status.Code == statusSuccess {
			if decodeErr := p.appendData(resp.Result.Data); decodeErr != nil {
				err = apperrors.NewQueryFailed(string(p.op), resp.Status.Code, decodeErr)
			}
		}
		c.finish(resp.RequestID, err)
	case statusAuthenticate:
		if p.authSent {
			c.finish(resp.RequestID, apperrors.NewQueryFailed(string(p.op), resp.Status.Code,
				fmt.Errorf("authentication rejected")))
			return
		}
		p.authSent = true
		if err := c.write(conn, c.authRequest(resp.RequestID)); err != nil {
			c.finish(resp.RequestID, apperrors.NewStoreUnavailable(c.cfg.Endpoint, err))
		}
	default:
		c.finish(resp.RequestID, c.classify(p.op, resp))
	}
}

// authRequest answers a 407 challenge with SASL PLAIN credentials
func (c *GremlinClient) authRequest(requestID string) gremlinRequest {
	token := "\x00" + c.cfg.Username + "\x00" + c.cfg.Password
	return gremlinRequest{
		RequestID: requestID,
		Op:        "authentication",
		Processor: "",
		Args: map[string]any{
			"sasl":          base64.StdEncoding.EncodeToString([]byte(token)),
			"saslMechanism": "PLAIN",
		},
	}
}

func (c *GremlinClient) classify(op query.Operation, resp *gremlinResponse) error {
	code := resp.Status.Code
	cause := fmt.Errorf("%s", resp.Status.Message)

	msCode := 0
	if v, ok := resp.Status.Attributes[cosmosStatusAttribute].(float64); ok {
		msCode = int(v)
	}

	switch {
	case msCode == 409 || strings.Contains(strings.ToLower(resp.Status.Message), "already exists"):
		return apperrors.NewQueryConflict(string(op), 409, cause)
	case code == statusServerTimeout || msCode == 408:
		return apperrors.NewStoreUnavailable(c.cfg.Endpoint, cause)
	case msCode != 0:
		return apperrors.NewQueryFailed(string(op), msCode, cause)
	default:
		return apperrors.NewQueryFailed(string(op), code, cause)
	}
}

func (c *GremlinClient) finish(requestID string, err error) {
	c.mu.Lock()
	p, ok := c.pending[requestID]
	delete(c.pending, requestID)
	c.mu.Unlock()
	if ok {
		p.done <- err
	}
}

func (c *GremlinClient) forget(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}

// dropConnection discards a broken session. The next Submit dials again;
// requests in flight on it fail with StoreUnavailable.
func (c *GremlinClient) dropConnection(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return
	}
	c.conn = nil
	_ = conn.Close()

	c.logger.Warn("Gremlin session lost", zap.String("endpoint", c.cfg.Endpoint), zap.Error(cause))
	c.failPendingLocked(apperrors.NewStoreUnavailable(c.cfg.Endpoint, cause))
}

func (c *GremlinClient) failPendingLocked(err error) {
	for id, p := range c.pending {
		delete(c.pending, id)
		p.done <- err
	}
}

func (p *pendingRequest) appendData(raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode result data: %w", err)
	}

	switch data := fromGraphSON(v).(type) {
	case []any:
		p.data = append(p.data, data...)
	default:
		p.data = append(p.data, data)
	}
	return nil
}

// fromGraphSON strips GraphSON type wrappers ({"@type", "@value"}) and turns
// JSON numbers into int64 or float64
func fromGraphSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if typ, ok := t["@type"].(string); ok {
			if val, ok := t["@value"]; ok {
				return typedValue(typ, val)
			}
		}
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = fromGraphSON(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = fromGraphSON(x)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

func typedValue(typ string, val any) any {
	inner := fromGraphSON(val)
	switch typ {
	case "g:Int32", "g:Int64":
		switch n := inner.(type) {
		case int64:
			return n
		case float64:
			return int64(n)
		}
	case "g:Float", "g:Double":
		switch n := inner.(type) {
		case int64:
			return float64(n)
		case float64:
			return n
		}
	case "g:Date", "g:Timestamp":
		if ms, ok := inner.(int64); ok {
			return time.UnixMilli(ms).UTC()
		}
	case "g:Map":
		// GraphSON maps are flat [k1, v1, k2, v2, ...] lists
		if list, ok := inner.([]any); ok {
			out := make(map[string]any, len(list)/2)
			for i := 0; i+1 < len(list); i += 2 {
				out[fmt.Sprint(list[i])] = list[i+1]
			}
			return out
		}
	}
	return inner
}
