// Package influxdb mirrors greenhouse telemetry into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Writes are
// non-blocking and batched according to config.yaml (batch_size,
// flush_interval); failures are delivered to the SetOnError callback
// rather than to the caller.
//
// # Data layout
//
//	sensor_readings,sensor=Moisture value=41.2 <observed_at>
//	actuator_states,actuator=pump energized=true,auto_mode=false <at>
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading(reading)
//
// The mirror is best-effort: the primary history store remains the record
// of truth, and a disconnected client drops writes silently.
package influxdb
