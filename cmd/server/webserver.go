package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/coordinator"
	"github.com/marben/dist_fractal/params"
	"github.com/marben/dist_fractal/render"
	"github.com/marben/dist_fractal/stream"
)

type webServer struct {
	backend *backend
	base    fractal.RenderRequest
	origins []string
	static  string
}

// handler serves the static viewer, the websocket endpoint and one-shot PNG
// renders, plus the irpc worker endpoint when that backend is used.
func (ws *webServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.websocketHandler)
	mux.HandleFunc("/render.png", ws.pngHandler)
	mux.HandleFunc("/presets", ws.presetsHandler)
	if ws.backend.wsl != nil {
		mux.Handle(ws.backend.irpcPath, ws.backend.wsl)
	}
	mux.Handle("/", http.FileServer(http.Dir(ws.static)))
	return mux
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// websocketHandler runs one viewer session. Every JSON object the viewer sends
// is overlaid on its previous parameters and submitted as a new render,
// superseding whatever was still in flight.
func (ws *webServer) websocketHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: ws.origins,
	})
	if err != nil {
		log.Println(err)
		return
	}
	defer c.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sink := stream.NewSink(ctx, c, 16)
	coord := ws.backend.newCoordinator(sink)
	defer func() {
		sink.Close()
		coord.Close()
	}()

	log.Printf("viewer connected: %s", r.RemoteAddr)
	defer log.Printf("viewer disconnected: %s", r.RemoteAddr)

	wake := make(chan struct{}, 1)
	go reportDone(ctx, coord, sink, wake)

	current := ws.base
	for {
		m, err := stream.ReadParams(ctx, c)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					log.Printf("viewer %s: read: %v", r.RemoteAddr, err)
				}
			}
			return
		}

		req, err := params.Decode(m, current)
		if err != nil {
			sink.Send(stream.ErrorMessage(coord.Generation(), err))
			continue
		}

		gen, err := coord.Submit(req)
		if err != nil {
			sink.Send(stream.ErrorMessage(coord.Generation(), err))
			continue
		}
		current = req
		sink.Send(stream.SubmittedMessage(gen, req.Effective()))

		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

// reportDone sends one done message per finished generation. Generations
// superseded before finishing are not reported.
func reportDone(ctx context.Context, coord *coordinator.Coordinator, sink *stream.Sink, wake <-chan struct{}) {
	var reported fractal.GenerationID
	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
		}

		gen, err := coord.Wait(ctx)
		if ctx.Err() != nil || errors.Is(err, coordinator.ErrClosed) {
			return
		}
		if gen == reported || coord.Outstanding() != 0 {
			continue
		}
		reported = gen

		m := stream.Message{Type: stream.TypeDone, Generation: uint64(gen)}
		if err != nil {
			m.Error = err.Error()
		}
		sink.Send(m)
	}
}

// pngHandler renders the image described by the query string and writes it as PNG.
func (ws *webServer) pngHandler(w http.ResponseWriter, r *http.Request) {
	req, err := params.ParseQuery(r.URL.RawQuery, ws.base)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	coord := ws.backend.newCoordinator(nil)
	defer coord.Close()

	if _, err := coord.Submit(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, err = coord.Wait(r.Context())
	var partial *coordinator.PartialRenderError
	switch {
	case errors.As(err, &partial):
		w.Header().Set("X-Failed-Tiles", fmt.Sprint(partial.Failed))
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	img := render.Downsample(coord.Snapshot(), req.Supersampling)
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		log.Printf("png.Encode: %v", err)
	}
}

type presetLink struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

// presetsHandler lists the landmark regions as query strings for the viewer.
func (ws *webServer) presetsHandler(w http.ResponseWriter, _ *http.Request) {
	v := ws.base.Viewport
	links := make([]presetLink, 0, len(fractal.Presets))
	for _, name := range fractal.PresetNames() {
		req := ws.base
		req.Set = fractal.Mandelbrot
		req.Viewport = fractal.Presets[name].Viewport(v.PixelWidth, v.PixelHeight)
		links = append(links, presetLink{Name: name, Query: params.Query(req)})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(links); err != nil {
		log.Printf("presets: %v", err)
	}
}
