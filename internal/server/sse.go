package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/polychat/polychat/internal/logging"
)

// sseHeartbeatInterval is the keep-alive interval on the event stream.
const sseHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeRaw(eventType string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprint(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// handleSendStream runs a streaming turn, forwarding each text fragment as
// one SSE event. The terminal "done" event carries the chat ID; the turn is
// persisted by the manager once the underlying stream is drained.
func (s *Server) handleSendStream(w http.ResponseWriter, r *http.Request) {
	req, parts, ok := s.prepareSend(w, r)
	if !ok {
		return
	}

	handle, err := s.manager.SendStream(r.Context(), req.Text, parts...)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	defer handle.Close()

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	for {
		fragment, err := handle.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if writeErr := sse.writeEvent("fragment", map[string]string{"text": fragment}); writeErr != nil {
			// client went away; Close persists the partial turn
			return
		}
	}

	done := map[string]string{}
	if current := s.manager.CurrentChat(); current != nil {
		done["chatId"] = current.ID
	}
	sse.writeEvent("done", done)
}

// handleEvents streams the event bus over SSE until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	if err := sse.writeEvent("connected", map[string]any{}); err != nil {
		return
	}

	events, err := s.bus.Watch(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	log := logging.For("server")
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.writeHeartbeat()
		case msg, ok := <-events:
			if !ok {
				return
			}
			err := sse.writeRaw(msg.Metadata.Get("type"), msg.Payload)
			msg.Ack()
			if err != nil {
				log.Debug().Err(err).Msg("event stream closed")
				return
			}
		}
	}
}
