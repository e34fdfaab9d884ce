// Package mqtt connects webstone to the host over an MQTT broker.
//
// The host (the world simulation that owns the physical switches) and the
// server exchange block commands and notifications on topics under a
// configurable prefix. This package owns the broker connection:
//   - auto-reconnect with subscriptions restored on every connect
//   - online/offline status on {prefix}/system/status, with a Last Will
//     so an unexpected drop is still reported
//   - bounded payloads and validated QoS on publish
//
// Topic layout, built by Topics:
//
//	{prefix}/command/{blockId}      server -> host
//	{prefix}/state/{blockId}        host -> server
//	{prefix}/register/{blockId}     host -> server
//	{prefix}/unregister/{blockId}   host -> server
//	{prefix}/advisory/{ownerId}     server -> host
//	{prefix}/system/status          retained, both
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllStates(), 1, handler)
//
// Tests that need a broker at 127.0.0.1:1883 carry the integration build tag.
package mqtt
