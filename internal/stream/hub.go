// Package stream broadcasts colony frames to websocket viewers.
package stream

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"bactosim/internal/core"
	"bactosim/internal/sim"
)

// CapsuleMsg is one cell in a frame.
type CapsuleMsg struct {
	ID     int           `json:"id"`
	Type   int           `json:"type"`
	Ends   [2][3]float64 `json:"ends"`
	Radius float64       `json:"radius"`
}

// Frame is the JSON message sent to viewers after each step.
type Frame struct {
	Type     string       `json:"type"`
	Step     int          `json:"step"`
	Cells    int          `json:"cells"`
	Contacts int          `json:"contacts"`
	Width    int          `json:"width,omitempty"`
	Height   int          `json:"height,omitempty"`
	Raster   []uint8      `json:"raster,omitempty"`
	Capsules []CapsuleMsg `json:"capsules"`
}

// NewFrame builds a frame from a step report and the live cells. raster may
// be nil.
func NewFrame(rep sim.Report, cells []*sim.CellState, raster *core.ByteGrid) Frame {
	f := Frame{
		Type:     "frame",
		Step:     rep.Step,
		Cells:    len(cells),
		Contacts: rep.Physics.Contacts,
		Capsules: make([]CapsuleMsg, 0, len(cells)),
	}
	for _, c := range cells {
		f.Capsules = append(f.Capsules, CapsuleMsg{
			ID:     c.ID,
			Type:   c.CellType,
			Ends:   [2][3]float64{c.Ends[0], c.Ends[1]},
			Radius: c.Radius,
		})
	}
	if raster != nil {
		f.Width, f.Height = raster.W, raster.H
		f.Raster = append([]uint8(nil), raster.Cells()...)
	}
	return f
}

// Command is a control message received from a viewer.
type Command struct {
	Pause *bool  `json:"pause,omitempty"`
	Reset *int64 `json:"reset,omitempty"`
	Steps int    `json:"steps,omitempty"`
}

// Hub tracks connected viewers and fans frames out to them.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	last    *Frame

	commands chan Command
	logger   *slog.Logger
}

// NewHub returns a hub that accepts any origin.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		commands: make(chan Command, 16),
		logger:   logger.With(slog.String("component", "stream")),
	}
}

// Commands delivers viewer control messages. Messages are dropped when the
// channel is full.
func (h *Hub) Commands() <-chan Command { return h.commands }

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection, sends the latest frame and then reads
// commands until the viewer disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = connMu
	last := h.last
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()
	h.logger.Info("viewer connected", slog.String("remote", r.RemoteAddr))

	if last != nil {
		connMu.Lock()
		err := conn.WriteJSON(last)
		connMu.Unlock()
		if err != nil {
			return
		}
	}

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			h.logger.Debug("viewer gone", slog.Any("err", err))
			return
		}
		select {
		case h.commands <- cmd:
		default:
			h.logger.Warn("command dropped")
		}
	}
}

// Broadcast sends f to every viewer and forgets viewers whose write fails.
func (h *Hub) Broadcast(f Frame) {
	h.mu.Lock()
	h.last = &f
	h.mu.Unlock()

	h.mu.RLock()
	var failed []*websocket.Conn
	for conn, connMu := range h.clients {
		connMu.Lock()
		err := conn.WriteJSON(&f)
		connMu.Unlock()
		if err != nil {
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	if len(failed) > 0 {
		h.mu.Lock()
		for _, conn := range failed {
			delete(h.clients, conn)
			conn.Close()
		}
		h.mu.Unlock()
	}
}
