package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sseKeepAlive is how often a comment line is written to keep proxies from closing idle streams.
const sseKeepAlive = 15 * time.Second

// eventStream writes server-sent events to one client.
type eventStream struct {
	w http.ResponseWriter
	f http.Flusher
}

// openEventStream switches the response to text/event-stream. It writes a 500
// and returns false when the writer cannot flush.
func openEventStream(w http.ResponseWriter) (*eventStream, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()

	return &eventStream{w: w, f: f}, true
}

func (s *eventStream) send(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{}`)
	}
	_, _ = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data)
	s.f.Flush()
}

func (s *eventStream) ping() {
	_, _ = fmt.Fprint(s.w, ": keep-alive\n\n")
	s.f.Flush()
}

// SSEJob is what streamJob needs from a background job.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

func isJobTerminal(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// streamJob sends a "status" event with snapshot, then relays job events
// until the job reaches a terminal state or the client goes away.
func streamJob(w http.ResponseWriter, r *http.Request, job SSEJob, snapshot func() any) {
	// Subscribe before the snapshot so no event falls between the two.
	events := job.AddListener()
	defer job.RemoveListener(events)

	stream, ok := openEventStream(w)
	if !ok {
		return
	}

	stream.send("status", snapshot())
	if isJobTerminal(job.GetStatus()) {
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			stream.ping()
		case ev, open := <-events:
			if !open {
				return
			}
			stream.send(ev.Type, ev)
			if isJobTerminal(job.GetStatus()) {
				return
			}
		}
	}
}
