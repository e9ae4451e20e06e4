package natsrender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	fractal "github.com/marben/dist_fractal"
)

// Service answers tile requests with a local renderer.
type Service struct {
	nc       *nats.Conn
	renderer fractal.Renderer
	opts     options

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewService returns a stopped Service.
func NewService(nc *nats.Conn, renderer fractal.Renderer, opts ...Option) *Service {
	return &Service{nc: nc, renderer: renderer, opts: newOptions(opts)}
}

func (s *Service) logger() *slog.Logger {
	if s.opts.logger != nil {
		return s.opts.logger
	}
	return fractal.Logger()
}

// Start joins the queue group. Subscriptions are flushed to the server
// before Start returns, so a request published afterwards is served.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return errors.New("natsrender: service already started")
	}

	for range s.opts.concurrency {
		sub, err := s.nc.QueueSubscribe(s.opts.subject, s.opts.queue, s.handle)
		if err != nil {
			s.unsubscribe()
			return fmt.Errorf("queue subscribe %q: %w", s.opts.subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	if err := s.nc.Flush(); err != nil {
		s.unsubscribe()
		return fmt.Errorf("nats flush: %w", err)
	}

	s.logger().Info("tile service started", "subject", s.opts.subject, "queue", s.opts.queue, "concurrency", s.opts.concurrency)
	return nil
}

// Stop drains the subscriptions; requests already received are finished.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	s.subs = nil
	return errors.Join(errs...)
}

func (s *Service) unsubscribe() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
}

func (s *Service) handle(msg *nats.Msg) {
	resp := s.serve(msg.Data)
	data, err := marshal(resp)
	if err != nil {
		s.logger().Error("encode tile response", "err", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger().Warn("respond", "err", err)
	}
}

func (s *Service) serve(data []byte) TileResponse {
	var tr TileRequest
	if err := unmarshal(data, &tr); err != nil {
		return TileResponse{Error: err.Error()}
	}
	fail := func(err error) TileResponse {
		return TileResponse{RenderID: tr.RenderID, RowStart: tr.RowStart, RowCount: tr.RowCount, Error: err.Error()}
	}

	req, band := tr.Request(), tr.Band()
	if err := req.CheckBand(band); err != nil {
		return fail(err)
	}

	res, err := s.renderer.RenderTile(context.Background(), req, band)
	if err != nil {
		s.logger().Warn("tile render failed", "generation", req.Generation, "band", band, "err", err)
		return fail(err)
	}
	s.logger().Debug("tile rendered", "generation", req.Generation, "band", band)
	return NewTileResponse(res)
}
