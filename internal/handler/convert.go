package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/rcarmo/go-fbtile/internal/config"
	"github.com/rcarmo/go-fbtile/internal/drm"
	"github.com/rcarmo/go-fbtile/internal/fbtile"
	"github.com/rcarmo/go-fbtile/internal/filter"
	"github.com/rcarmo/go-fbtile/internal/logging"
)

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192 * 2
)

// Handler serves the conversion endpoints.
type Handler struct {
	cfg      *config.Config
	upgrader websocket.Upgrader
	active   atomic.Int32
}

// New returns a Handler for cfg. A nil cfg uses the global configuration,
// loading it from the environment if nothing has been loaded yet.
func New(cfg *config.Config) *Handler {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			logging.Warn("handler: failed to load config, using defaults: %v", err)
			cfg = config.Defaults()
		}
	}

	h := &Handler{cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isAllowedOrigin(r.Header.Get("Origin"), h.cfg.Server.AllowedOrigins)
		},
	}
	return h
}

// Register adds the handler's routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/convert", h.Convert)
	mux.HandleFunc("/layouts", h.Layouts)
	mux.HandleFunc("/healthz", h.Healthz)
}

// session holds the per-connection defaults and the Tilers built so far.
type session struct {
	defaults filter.Options
	tilers   map[filter.Options]*filter.Tiler
}

func (s *session) tiler(opts filter.Options) (*filter.Tiler, error) {
	if t, ok := s.tilers[opts]; ok {
		return t, nil
	}
	t, err := filter.New(opts)
	if err != nil {
		return nil, err
	}
	s.tilers[opts] = t
	return t, nil
}

func (s *session) close() {
	for _, t := range s.tilers {
		_ = t.Close()
	}
}

// sessionOptions reads layout, op, walker, auto and workers from the query
// string, falling back to the tiling configuration.
func (h *Handler) sessionOptions(r *http.Request) (filter.Options, error) {
	tc := h.cfg.Tiling
	q := r.URL.Query()
	if v := q.Get("layout"); v != "" {
		tc.Layout = v
	}
	if v := q.Get("op"); v != "" {
		tc.Op = v
	}
	if v := q.Get("walker"); v != "" {
		tc.Walker = v
	}
	if v := q.Get("auto"); v != "" {
		auto, err := strconv.ParseBool(v)
		if err != nil {
			return filter.Options{}, fmt.Errorf("auto: %w", err)
		}
		tc.Auto = auto
	}
	if v := q.Get("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter.Options{}, fmt.Errorf("workers: invalid value %q", v)
		}
		tc.Workers = n
	}

	layout, op, walker, err := tc.Resolve()
	if err != nil {
		return filter.Options{}, err
	}
	return filter.Options{Layout: layout, Op: op, Auto: tc.Auto, Walker: walker, Workers: tc.Workers}, nil
}

// Convert upgrades to a WebSocket and converts every binary message it
// receives, replying with one message per request.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	defaults, err := h.sessionOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if n := h.active.Add(1); int(n) > h.cfg.Server.MaxConnections {
		h.active.Add(-1)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer h.active.Add(-1)

	protocol := r.Header.Get("Sec-Websocket-Protocol")
	var respHeader http.Header
	if protocol != "" {
		respHeader = http.Header{"Sec-Websocket-Protocol": {protocol}}
	}
	wsConn, err := h.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		logging.Error("upgrade websocket: %v", err)
		return
	}
	defer func() {
		if err = wsConn.Close(); err != nil {
			logging.Debug("error closing websocket: %v", err)
		}
	}()
	wsConn.SetReadLimit(int64(h.cfg.Server.MaxMessageBytes))

	s := &session{defaults: defaults, tilers: make(map[filter.Options]*filter.Tiler)}
	defer s.close()

	logging.Info("convert: session %s from %s", describeOptions(defaults), r.RemoteAddr)
	h.serve(r.Context(), wsConn, s)
}

func (h *Handler) serve(ctx context.Context, wsConn *websocket.Conn, s *session) {
	for {
		select {
		case <-ctx.Done():
			return
		default: // pass
		}

		msgType, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.HasSuffix(err.Error(), "use of closed network connection") {
				return
			}
			logging.Error("error reading message from ws: %v", err)
			return
		}
		if msgType != websocket.BinaryMessage {
			logging.Debug("convert: ignoring message type %d", msgType)
			continue
		}

		reply := h.handleMessage(ctx, s, data)
		if err = wsConn.WriteMessage(websocket.BinaryMessage, reply); err != nil {
			if errors.Is(err, websocket.ErrCloseSent) {
				return
			}
			logging.Error("failed sending message to ws: %v", err)
			return
		}
	}
}

// handleMessage converts one request and returns the encoded reply.
func (h *Handler) handleMessage(ctx context.Context, s *session, msg []byte) []byte {
	out, status, err := h.convertMessage(ctx, s, msg)
	if err != nil {
		logging.Debug("convert: %v", err)
		return AppendReply(nil, ReplyHeader{Status: StatusError}, []byte(err.Error()))
	}

	rh := ReplyHeader{
		Status:   StatusTiled,
		Format:   uint8(out.Format),
		Stride:   uint32(out.Stride),
		Modifier: out.Modifier,
	}
	if status == fbtile.FrameCopyPlain {
		rh.Status = StatusPlain
	}
	return AppendReply(make([]byte, 0, ReplyHeaderSize+len(out.Data)), rh, out.Data)
}

func (h *Handler) convertMessage(ctx context.Context, s *session, msg []byte) (*fbtile.Frame, fbtile.FrameCopyStatus, error) {
	hdr, pixels, err := ParseRequest(msg)
	if err != nil {
		return nil, fbtile.FrameCopyPlain, err
	}
	if int(hdr.Width) > h.cfg.Tiling.MaxWidth || int(hdr.Height) > h.cfg.Tiling.MaxHeight {
		return nil, fbtile.FrameCopyPlain, fmt.Errorf("%w: %dx%d exceeds %dx%d", fbtile.ErrInvalidGeometry,
			hdr.Width, hdr.Height, h.cfg.Tiling.MaxWidth, h.cfg.Tiling.MaxHeight)
	}
	in, err := hdr.Frame(pixels)
	if err != nil {
		return nil, fbtile.FrameCopyPlain, err
	}

	opts := s.defaults
	if hdr.Op != UseDefault {
		opts.Op = fbtile.Op(hdr.Op)
	}
	if hdr.Layout != UseDefault {
		opts.Layout = fbtile.Layout(hdr.Layout)
	}
	if hdr.Flags&FlagAuto != 0 {
		opts.Auto = true
	}

	t, err := s.tiler(opts)
	if err != nil {
		return nil, fbtile.FrameCopyPlain, err
	}
	if w, h, ok := t.Size(); !ok || w != in.Width || h != in.Height {
		if err := t.Configure(in.Width, in.Height); err != nil {
			return nil, fbtile.FrameCopyPlain, err
		}
	}
	return t.Process(ctx, in)
}

func describeOptions(o filter.Options) string {
	layout := o.Layout.String()
	if o.Auto {
		layout = "auto"
	}
	return fmt.Sprintf("op=%s layout=%s walker=%s workers=%d", o.Op, layout, o.Walker, o.Workers)
}

// LayoutInfo describes one tiled layout for /layouts.
type LayoutInfo struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Modifier      string          `json:"modifier"`
	ModifierName  string          `json:"modifierName"`
	BytesPerPixel int             `json:"bytesPerPixel"`
	SubTileWidth  int             `json:"subTileWidth"`
	SubTileHeight int             `json:"subTileHeight"`
	TileWidth     int             `json:"tileWidth"`
	TileHeight    int             `json:"tileHeight"`
	DirChanges    []DirChangeInfo `json:"dirChanges"`
}

// DirChangeInfo is one direction change of a layout.
type DirChangeInfo struct {
	PosOffset int `json:"posOffset"`
	XDelta    int `json:"xDelta"`
	YDelta    int `json:"yDelta"`
}

// LayoutInfos describes every tiled layout.
func LayoutInfos() []LayoutInfo {
	var out []LayoutInfo
	for _, l := range fbtile.Layouts() {
		tw, ok := fbtile.WalkFor(l)
		if !ok {
			continue
		}
		info := LayoutInfo{
			Name:          l.String(),
			Description:   l.Description(),
			Modifier:      fmt.Sprintf("0x%016x", l.DRMModifier()),
			ModifierName:  drm.ModifierString(l.DRMModifier()),
			BytesPerPixel: tw.BytesPerPixel,
			SubTileWidth:  tw.SubTileWidth,
			SubTileHeight: tw.SubTileHeight,
			TileWidth:     tw.TileWidth,
			TileHeight:    tw.TileHeight,
		}
		for _, dc := range tw.DirChanges {
			info.DirChanges = append(info.DirChanges, DirChangeInfo(dc))
		}
		out = append(out, info)
	}
	return out
}

// Layouts serves the tiled layouts as JSON.
func (h *Handler) Layouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LayoutInfos()); err != nil {
		logging.Error("layouts: %v", err)
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
