// Package api implements the LAN HTTP API and websocket event stream.
//
// Endpoints under /api/v1:
//
//	GET  /health          liveness and version
//	GET  /status          robot mode, loaded routine and live action count
//	GET  /slots           saved programs
//	PUT  /slots           replace every saved program
//	POST /program         {"program": "..."} loads a routine, {"stop": true} stops
//	GET  /runs?limit=N    recent RUN/STOP history
//	GET  /ws              websocket stream of robot events
//
// There are no accounts; the API is meant for the robot's own network.
// Program submission goes through the same Controller as the control socket,
// so a routine loaded here behaves exactly like one loaded with RUN.
package api
