// Package api serves the webstone WebSocket protocol.
//
// Each connection gets a read pump and a write pump. The read pump decodes
// frames and hands them to the loop; nothing here mutates registries off the
// loop. The Hub tracks connected clients and which registry each one is
// subscribed to, and implements control.Broadcaster.
//
//	hub := api.NewHub(cfg.WebSocket, logger)
//	svc := control.New(dir, hub)
//	server, err := api.New(api.Deps{Hub: hub, Service: svc, Loop: lp, ...})
//	server.Start(ctx)
//	defer server.Close()
//
// GET /health reports liveness and the connected client count. GET /metrics
// adds registry counts and the state of the optional MQTT, InfluxDB and
// SQLite links.
package api
