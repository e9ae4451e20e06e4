package stream

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	fractal "github.com/marben/dist_fractal"
)

// DefaultWriteTimeout bounds a single websocket write.
const DefaultWriteTimeout = 10 * time.Second

type outbound struct {
	frame []byte
	msg   *Message
}

// Sink is a fractal.PixelSink writing to one websocket connection.
//
// Writes happen on a dedicated goroutine. PaintTile and TileFailed block
// only while the outgoing queue is full, and stop blocking once the sink is
// closed or the connection fails.
type Sink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan outbound
	done   chan struct{}

	mu  sync.Mutex
	err error
}

var _ fractal.PixelSink = (*Sink)(nil)

// NewSink starts the writer for conn. queue is the number of messages that
// may wait to be written.
func NewSink(ctx context.Context, conn *websocket.Conn, queue int) *Sink {
	if queue < 1 {
		queue = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Sink{
		conn:         conn,
		writeTimeout: DefaultWriteTimeout,
		ctx:          ctx,
		cancel:       cancel,
		queue:        make(chan outbound, queue),
		done:         make(chan struct{}),
	}
	go s.writer()
	return s
}

// PaintTile queues one tile frame.
func (s *Sink) PaintTile(res fractal.TileResult) {
	s.enqueue(outbound{frame: EncodeFrame(res)})
}

// TileFailed queues a tileFailed message.
func (s *Sink) TileFailed(gen fractal.GenerationID, band fractal.RowBand, err error) {
	s.Send(Message{
		Type:       TypeTileFailed,
		Generation: uint64(gen),
		StartRow:   band.StartRow,
		RowCount:   band.RowCount,
		Error:      err.Error(),
	})
}

// Send queues a JSON message.
func (s *Sink) Send(m Message) {
	s.enqueue(outbound{msg: &m})
}

func (s *Sink) enqueue(o outbound) {
	select {
	case s.queue <- o:
	case <-s.ctx.Done():
	}
}

// Err returns the first write error, if any.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed when the writer has stopped.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Close stops the writer. Queued messages that were not written are dropped.
// The connection itself is left open.
func (s *Sink) Close() {
	s.cancel()
	<-s.done
}

func (s *Sink) writer() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case o := <-s.queue:
			if err := s.write(o); err != nil {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				fractal.Logger().Debug("websocket write failed", "err", err)
				s.cancel()
				return
			}
		}
	}
}

func (s *Sink) write(o outbound) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.writeTimeout)
	defer cancel()
	if o.msg != nil {
		return wsjson.Write(ctx, s.conn, o.msg)
	}
	return s.conn.Write(ctx, websocket.MessageBinary, o.frame)
}
