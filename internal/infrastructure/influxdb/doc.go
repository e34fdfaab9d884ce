// Package influxdb records block telemetry in InfluxDB.
//
// Every committed power or state change becomes one point:
//
//	block_state,block_id=<uuid>,registry_id=<uuid> power=7i,powered=1i
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Async write failures are delivered to the SetOnError
// callback. Telemetry is optional; with influxdb.enabled false, Connect
// returns ErrDisabled and the server runs without it.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	svc.SetRecorder(client)
package influxdb
