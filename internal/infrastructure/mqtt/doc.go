// Package mqtt connects the daemon to an MQTT broker.
//
// The client publishes a retained online/offline status for the robot (with
// a Last Will so a crash is visible), publishes robot events and restores
// its subscriptions after every reconnect.
//
// Topic layout, with <id> the configured robot id:
//
//	choreo/<id>/status           retained online | offline
//	choreo/<id>/event/<type>     robot events (JSON)
//	choreo/<id>/command          run / stop requests (JSON)
//	choreo/<id>/command/result   replies to command requests
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Robot.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package mqtt
