package irpcrender

import (
	"context"
	"net"
	"net/http"

	"github.com/coder/websocket"
)

// WebsocketListener is a net.Listener fed by an http handler: every
// websocket a worker opens on it is accepted as one binary stream.
type WebsocketListener struct {
	ch      chan *websocket.Conn
	ctx     context.Context
	cancel  context.CancelFunc
	addr    wsAddr
	origins []string
}

// NewWebsocketListener returns a listener reporting addr as its address.
// origins are the accepted Origin patterns; nil allows only same-host requests.
func NewWebsocketListener(addr string, origins []string) *WebsocketListener {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebsocketListener{
		ch:      make(chan *websocket.Conn),
		ctx:     ctx,
		cancel:  cancel,
		addr:    wsAddr{addr: addr},
		origins: origins,
	}
}

// ServeHTTP upgrades the request and hands the connection to Accept.
func (l *WebsocketListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: l.origins})
	if err != nil {
		return
	}
	select {
	case l.ch <- c:
	case <-l.ctx.Done():
		c.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (l *WebsocketListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.ch:
		return websocket.NetConn(l.ctx, c, websocket.MessageBinary), nil
	case <-l.ctx.Done():
		return nil, net.ErrClosed
	}
}

func (l *WebsocketListener) Addr() net.Addr {
	return l.addr
}

// Close stops Accept and closes every connection it returned.
func (l *WebsocketListener) Close() error {
	l.cancel()
	return nil
}

type wsAddr struct {
	addr string
}

func (a wsAddr) Network() string {
	return "ws"
}

func (a wsAddr) String() string {
	return a.addr
}
