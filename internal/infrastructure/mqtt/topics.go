package mqtt

import "strings"

// TopicRoot is the first level of every topic.
const TopicRoot = "choreo"

// Topics builds the topics of one robot.
type Topics struct {
	RobotID string
}

func (t Topics) base() string {
	return TopicRoot + "/" + t.RobotID
}

// Status returns the retained online/offline topic.
func (t Topics) Status() string {
	return t.base() + "/status"
}

// Event returns the topic for events of eventType.
func (t Topics) Event(eventType string) string {
	return t.base() + "/event/" + eventType
}

// AllEvents returns a wildcard matching every event topic.
func (t Topics) AllEvents() string {
	return t.base() + "/event/#"
}

// Command returns the topic on which run/stop requests arrive.
func (t Topics) Command() string {
	return t.base() + "/command"
}

// CommandResult returns the topic for command replies.
func (t Topics) CommandResult() string {
	return t.base() + "/command/result"
}

// ValidRobotID reports whether id can be used as a single topic level.
func ValidRobotID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/+#")
}
