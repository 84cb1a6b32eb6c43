package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wonny/redev/backend/internal/scenario"
	"github.com/wonny/redev/backend/pkg/logger"
	"github.com/wonny/redev/backend/pkg/metrics"
)

// wsReadLimit 프레임 하나의 최대 크기
const wsReadLimit = 64 << 10

// LiveHandler 입력이 바뀔 때마다 KPI를 다시 계산해 돌려주는 websocket
type LiveHandler struct {
	upgrader websocket.Upgrader
	metrics  *metrics.Collector
	logger   *logger.Logger
}

// NewLiveHandler creates a new live scenario handler. metrics may be nil
func NewLiveHandler(m *metrics.Collector, log *logger.Logger) *LiveHandler {
	return &LiveHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		metrics: m,
		logger:  log,
	}
}

// liveReply 한 프레임 응답 (Error가 있으면 Result 없음)
type liveReply struct {
	Result  *scenario.Result `json:"result,omitempty"`
	Rounded *scenario.Result `json:"rounded,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ServeScenario 텍스트 프레임 = Input JSON, 응답 = Result JSON
// GET /ws/scenario
func (h *LiveHandler) ServeScenario(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)

	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
		defer h.metrics.ActiveConnections.Dec()
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Debug("WebSocket read ended")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := conn.WriteJSON(evaluate(data)); err != nil {
			h.logger.WithError(err).Debug("WebSocket write failed")
			return
		}
	}
}

// evaluate 프레임 하나 계산
func evaluate(data []byte) liveReply {
	in := scenario.DefaultInput()
	if err := json.Unmarshal(data, &in); err != nil {
		return liveReply{Error: "invalid input JSON"}
	}
	if err := in.Validate(); err != nil {
		return liveReply{Error: err.Error()}
	}

	result := scenario.CalcKPIs(in)
	rounded := result.Rounded()
	return liveReply{Result: &result, Rounded: &rounded}
}
