package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/nn"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// prediction is the classification attached to one detected hand.
type prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// LandmarksHandler broadcasts real-time hand landmarks via WebSocket,
// with the current model's prediction attached when one is loaded.
type LandmarksHandler struct {
	detector detector.Detector
	camera   capture.Camera
	net      *nn.Network
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
}

// NewLandmarksHandler creates a new LandmarksHandler. net may be nil,
// in which case only raw landmarks are broadcast.
func NewLandmarksHandler(d detector.Detector, c capture.Camera, net *nn.Network) *LandmarksHandler {
	h := &LandmarksHandler{
		detector: d,
		camera:   c,
		net:      net,
		clients:  make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends landmark data to all connected clients.
func (h *LandmarksHandler) broadcast() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		h.mu.RUnlock()

		frame, err := h.camera.ReadFrame()
		if err != nil {
			continue
		}

		hands, err := h.detector.Detect(frame)
		frame.Close()
		if err != nil {
			continue
		}

		msg, _ := json.Marshal(map[string]any{
			"hands":       hands,
			"predictions": h.predictions(hands),
			"timestamp":   time.Now().UnixMilli(),
		})

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}

// predictions classifies each hand with the loaded model. Hands that
// cannot be encoded get a zero-value prediction.
func (h *LandmarksHandler) predictions(hands []landmark.Hand) []prediction {
	preds := make([]prediction, len(hands))
	if h.net == nil {
		return preds
	}

	for i := range hands {
		features, err := hands[i].FeatureVector()
		if err != nil {
			continue
		}

		label, confidence, err := h.net.Classify(features)
		if err != nil {
			continue
		}
		preds[i] = prediction{Label: label, Confidence: confidence}
	}
	return preds
}
