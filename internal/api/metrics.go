package api

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"
)

// ConnectionReporter is satisfied by the MQTT and InfluxDB clients.
type ConnectionReporter interface {
	IsConnected() bool
}

// StatsProvider is satisfied by *database.DB.
type StatsProvider interface {
	Stats() sql.DBStats
}

// SystemMetrics is the body of GET /metrics.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	Registries    RegistryMetrics  `json:"registries"`
	MQTT          *LinkMetrics     `json:"mqtt,omitempty"`
	InfluxDB      *LinkMetrics     `json:"influxdb,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// RegistryMetrics counts what the directory holds.
type RegistryMetrics struct {
	Total       int            `json:"total"`
	Blocks      int            `json:"blocks"`
	Groups      int            `json:"groups"`
	Subscribers map[string]int `json:"subscribers"`
}

// LinkMetrics reports an optional upstream connection.
type LinkMetrics struct {
	Connected bool `json:"connected"`
}

// DatabaseMetrics contains snapshot database pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
	}

	// Registry contents belong to the loop.
	ctx, cancel := context.WithTimeout(r.Context(), s.loopWait)
	defer cancel()
	err := s.loop.Do(ctx, func() {
		regs := s.svc.Directory().Registries()
		metrics.Registries = RegistryMetrics{
			Total:       len(regs),
			Subscribers: make(map[string]int, len(regs)),
		}
		for _, reg := range regs {
			metrics.Registries.Blocks += len(reg.Blocks())
			metrics.Registries.Groups += len(reg.Groups())
			metrics.Registries.Subscribers[reg.ID().String()] = s.hub.SubscriberCount(reg.ID())
		}
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "registry state unavailable")
		return
	}

	if s.mqtt != nil {
		metrics.MQTT = &LinkMetrics{Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		metrics.InfluxDB = &LinkMetrics{Connected: s.influx.IsConnected()}
	}
	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
