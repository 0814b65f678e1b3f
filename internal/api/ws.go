package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	logPollInterval = 200 * time.Millisecond
	logWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// logFrame is one message of the job log stream. The last frame of a stream
// carries Status and no line.
type logFrame struct {
	Seq    int    `json:"seq"`
	Line   string `json:"line,omitempty"`
	Status string `json:"status,omitempty"`
}

// StreamJobLogs streams a job's log over WebSocket, starting at line ?from=
// (default 0) so a client can reconnect without replaying. Once the job has
// finished and every line is sent, it sends the final status and closes.
func (s *Server) StreamJobLogs(w http.ResponseWriter, r *http.Request) {
	job := s.Jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	seq := 0
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "from must be a non-negative integer", http.StatusBadRequest)
			return
		}
		seq = n
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	send := func(f logFrame) bool {
		conn.SetWriteDeadline(time.Now().Add(logWriteTimeout))
		return conn.WriteJSON(f) == nil
	}

	ticker := time.NewTicker(logPollInterval)
	defer ticker.Stop()
	for {
		// State before lines: a line appended just before the job finished
		// is still picked up by this pass.
		done := job.Done()
		lines := job.LogsSince(seq)
		for _, line := range lines {
			if !send(logFrame{Seq: seq, Line: line}) {
				return
			}
			seq++
		}
		if done && len(lines) == 0 {
			status := job.State()
			send(logFrame{Seq: seq, Status: status})
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, status))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
