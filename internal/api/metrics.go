package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/QuestForge/internal/events"
	"github.com/AaronLay10/QuestForge/internal/version"
)

// Metrics state
var (
	metricsState = &MetricsState{}
)

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu         sync.RWMutex
	startTime  time.Time
	editorName string
}

// readiness tracks external dependency health for metrics.
var readiness = struct {
	mu                sync.RWMutex
	mqttConnected     bool
	postgresConnected bool
}{}

// SetMQTTConnected records whether the MQTT broker is reachable.
func SetMQTTConnected(connected bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mu.Unlock()
}

// SetPostgresConnected records whether the audit database is reachable.
func SetPostgresConnected(connected bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.mu.Unlock()
}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetEditorName sets the editor name for metrics labels.
func SetEditorName(name string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.editorName = name
}

// GetEditorName returns the current editor name.
func GetEditorName() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.editorName
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	editorName := metricsState.editorName
	metricsState.mu.RUnlock()

	uptime := time.Since(startTime).Seconds()
	eventsTotal := events.TotalCount()

	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	wsClients := events.SubscriberCount()
	sessions := ActiveSessions()

	mqttConnectedVal := 0
	if mqttConnected {
		mqttConnectedVal = 1
	}

	postgresConnectedVal := 0
	if postgresConnected {
		postgresConnectedVal = 1
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	// Build Prometheus text format response
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		if labels != "" {
			fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
		} else {
			fmt.Fprintf(w, "%s %v\n", name, value)
		}
	}

	labels := fmt.Sprintf(`editor="%s",instance="%s",version="%s"`, editorName, hostname, version.Version)

	writeMetric("questforge_uptime_seconds", "gauge",
		"Number of seconds since the editor started", uptime, labels)

	writeMetric("questforge_events_total", "counter",
		"Total number of events emitted since startup", eventsTotal, labels)

	writeMetric("questforge_mqtt_connected", "gauge",
		"Whether MQTT broker is connected (1) or not (0)", mqttConnectedVal, labels)

	writeMetric("questforge_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", postgresConnectedVal, labels)

	writeMetric("questforge_ws_clients", "gauge",
		"Number of active WebSocket client connections", wsClients, labels)

	writeMetric("questforge_editing_sessions", "gauge",
		"Number of active interactive editing sessions", sessions, labels)
}
