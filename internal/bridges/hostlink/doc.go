// Package hostlink connects the control service to the host over MQTT.
//
// Outbound, the Bridge is the control.Sink: power and level changes made by
// clients are queued and published to {prefix}/command/{blockId} by a
// single publisher goroutine, so the loop never waits on the broker.
//
// Inbound, state, register and unregister notifications from the host are
// decoded on the MQTT client's goroutine and submitted onto the loop as
// host-scoped control calls. A refused registration is answered with an
// advisory on {prefix}/advisory/{ownerId}.
//
// Registry administration arrives on {prefix}/admin/{ownerId}/{action}
// (setpass, genpass, context) and {prefix}/admin/clear. Passphrases are
// hashed before the work reaches the loop, and owner actions are answered
// on the owner's advisory topic.
//
// Usage:
//
//	bridge := hostlink.New(mqttClient, svc, lp, 0)
//	if err := bridge.Start(ctx); err != nil {
//	    return err
//	}
//	defer bridge.Stop()
//	svc.SetSink(bridge)
package hostlink
