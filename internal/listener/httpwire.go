package listener

import (
	"io"
	"net/http"

	"github.com/avena-commons/eventcore/internal/eventmodel"
	"github.com/avena-commons/eventcore/internal/httpapi"
)

// decodeEvent reads and strictly decodes an Event body, writing a 422 and
// returning false on failure (spec.md §6.1: "Unknown fields on ingress are
// rejected").
func decodeEvent(w http.ResponseWriter, r *http.Request) (*eventmodel.Event, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpapi.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}

	var e eventmodel.Event
	if err := e.UnmarshalJSON(body); err != nil {
		httpapi.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	return &e, true
}

// handleEvent implements POST /event (spec.md §6.1).
func (l *Listener) handleEvent(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	l.receivedEvents.Add(1)
	l.Incoming.Append(e, 0, 0, nil)
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleState implements POST /state: decode, delegate to no hook of its
// own (the analyzer/local-data hooks are where application logic lives),
// and acknowledge (spec.md §6.1).
func (l *Listener) handleState(w http.ResponseWriter, r *http.Request) {
	if _, ok := decodeEvent(w, r); !ok {
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDiscovery implements POST /discovery, the neighbour-discovery
// counterpart to /state (spec.md §6.1).
func (l *Listener) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if _, ok := decodeEvent(w, r); !ok {
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (l *Listener) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (l *Listener) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if l.State() != StateRunning || l.shutdownRequested.Load() {
		httpapi.WriteError(w, http.StatusServiceUnavailable, "not running")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (l *Listener) handleStatusz(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, l.StatusSnapshot())
}

func (l *Listener) handleMetrics(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, l.MetricsSnapshot())
}

// httpHandlers builds the httpapi.Handlers bound to this listener.
func (l *Listener) httpHandlers() httpapi.Handlers {
	return httpapi.Handlers{
		OnEvent:     l.handleEvent,
		OnState:     l.handleState,
		OnDiscovery: l.handleDiscovery,
		OnHealthz:   l.handleHealthz,
		OnReadyz:    l.handleReadyz,
		OnStatusz:   l.handleStatusz,
		OnMetrics:   l.handleMetrics,
	}
}
