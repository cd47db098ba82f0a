package control

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Command names and replies.
const (
	CommandRun  = "RUN"
	CommandStop = "STOP"

	ReplyOK     = "OK"
	errorPrefix = "ERROR;"

	noSuchCommand = "No such command"
)

// Command is one decoded request.
type Command struct {
	Name   string
	Script []byte
}

// ReadCommand reads one command from r. Scripts longer than maxScript bytes
// are rejected before they are read. maxScript <= 0 disables the check.
func ReadCommand(r *bufio.Reader, maxScript int) (Command, error) {
	name, err := readLine(r)
	if err != nil {
		return Command{}, err
	}

	switch name {
	case CommandStop:
		return Command{Name: CommandStop}, nil
	case CommandRun:
	default:
		return Command{}, &ProtocolError{Message: noSuchCommand, Err: ErrNoSuchCommand}
	}

	sizeLine, err := readLine(r)
	if err != nil {
		return Command{}, err
	}
	size, err := strconv.Atoi(sizeLine)
	if err != nil || size < 0 {
		return Command{}, &ProtocolError{Message: fmt.Sprintf("Invalid script length %q", sizeLine), Err: err}
	}
	if maxScript > 0 && size > maxScript {
		return Command{}, &ProtocolError{Message: fmt.Sprintf("Script too large (%d > %d bytes)", size, maxScript)}
	}

	script := make([]byte, size)
	if _, err := io.ReadFull(r, script); err != nil {
		return Command{}, &ProtocolError{Message: "Truncated script", Err: err}
	}
	return Command{Name: CommandRun, Script: script}, nil
}

// readLine returns the next line without surrounding whitespace. A final
// line without a newline is accepted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// WriteCommand encodes cmd to w.
func WriteCommand(w io.Writer, cmd Command) error {
	var buf bytes.Buffer
	buf.WriteString(cmd.Name)
	buf.WriteByte('\n')
	if cmd.Name == CommandRun {
		buf.WriteString(strconv.Itoa(len(cmd.Script)))
		buf.WriteByte('\n')
		buf.Write(cmd.Script)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// FormatReply returns the reply for err: OK when nil, otherwise
// ERROR;<message> with the message on one line.
func FormatReply(err error) []byte {
	if err == nil {
		return []byte(ReplyOK)
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	return []byte(errorPrefix + msg)
}

// ParseReply decodes a reply. An ERROR reply becomes a *ReplyError.
func ParseReply(reply []byte) error {
	text := string(reply)
	switch {
	case text == ReplyOK:
		return nil
	case strings.HasPrefix(text, errorPrefix):
		return &ReplyError{Message: strings.TrimPrefix(text, errorPrefix)}
	default:
		return fmt.Errorf("unexpected reply %q", text)
	}
}
