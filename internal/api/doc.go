// Package api provides the HTTP REST API and WebSocket server through which
// dashboards read greenhouse state and toggle actuators.
//
// Routes:
//
//	GET  /api/v1/health
//	GET  /api/v1/state
//	GET  /api/v1/readings?limit=N&sensor=Moisture
//	GET  /api/v1/actuators/{actuator}
//	PUT  /api/v1/actuators/{actuator}/power   {"on": true}
//	PUT  /api/v1/actuators/{actuator}/auto    {"enabled": true}
//	GET  /api/v1/ws
//	GET  /metrics
//
// A toggle that cannot reach the message bus answers 503 with code
// "not_connected". The local state keeps the optimistic value.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
