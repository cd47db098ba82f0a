// Package control implements the robot's local command socket.
//
// One command is sent per connection and the server closes the connection
// after exactly one reply:
//
//	RUN\n<decimal byte length>\n<script bytes>   ->  OK | ERROR;<message>
//	STOP\n                                       ->  OK
//	anything else                                ->  ERROR;No such command
//
// Replies are not length-prefixed; a client reads until the connection is
// closed. Connections are served one at a time.
//
// The listen address is a URL: unix:///tmp/robot-control or
// tcp://127.0.0.1:7000.
package control
