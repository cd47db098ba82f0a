// Package influxdb writes robot telemetry to InfluxDB 2.x.
//
// Writes go through the client library's non-blocking batched write API;
// batch size and flush interval come from the influxdb config section.
// Asynchronous write failures are reported to the callback set with
// SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint("action", tags, fields, time.Now())
package influxdb
