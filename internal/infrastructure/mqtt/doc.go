// Package mqtt supervises the greenhouse controller's single broker connection.
//
// This package manages:
//   - An explicit connection state machine with a fixed reconnect delay
//   - Re-issuing the full subscription set on every connect
//   - Serialised delivery of inbound messages to one handler
//   - Fail-fast publishing (no outbound queue)
//   - Last Will and Testament on an availability topic
//
// # State machine
//
//	Disconnected ──Start──▶ Connecting ──ok──▶ Connected
//	                          ▲    │               │
//	                  delay   │    │fail           │lost
//	                          │    ▼               ▼
//	                          └─ Offline ◀─────────┘
//
// Stop moves any state to Disconnected. paho's built-in auto-reconnect is
// disabled so that each step is visible to status observers.
//
// # Usage
//
//	sup := mqtt.NewSupervisor(cfg.MQTT, mqtt.WithLogger(log))
//	sup.SetMessageHandler(reconciler.HandleMessage)
//	sup.AddStatusObserver(func(s mqtt.Status) { ... })
//	if err := sup.Start(); err != nil {
//	    return err
//	}
//	defer sup.Stop()
//
//	err := sup.Publish("cmnd/greenhouse/pump", []byte("ON"))
//	if errors.Is(err, mqtt.ErrNotConnected) {
//	    // command not sent
//	}
package mqtt
