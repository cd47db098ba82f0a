package control

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadCommand(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		max        int
		wantName   string
		wantScript string
		wantErr    string
	}{
		{"run", "RUN\n5\nhello", 0, CommandRun, "hello", ""},
		{"run ignores trailing bytes", "RUN\n2\nhello", 0, CommandRun, "he", ""},
		{"run crlf", "RUN\r\n3\r\nabc", 0, CommandRun, "abc", ""},
		{"empty script", "RUN\n0\n", 0, CommandRun, "", ""},
		{"stop", "STOP\n", 0, CommandStop, "", ""},
		{"stop without newline", "STOP", 0, CommandStop, "", ""},
		{"unknown", "PING\n", 0, "", "", "No such command"},
		{"lowercase", "run\n1\nx", 0, "", "", "No such command"},
		{"empty", "", 0, "", "", "No such command"},
		{"bad length", "RUN\nabc\n", 0, "", "", `Invalid script length "abc"`},
		{"negative length", "RUN\n-1\n", 0, "", "", `Invalid script length "-1"`},
		{"too large", "RUN\n10\n0123456789", 4, "", "", "Script too large (10 > 4 bytes)"},
		{"truncated", "RUN\n10\nabc", 0, "", "", "Truncated script"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ReadCommand(bufio.NewReader(strings.NewReader(tt.input)), tt.max)
			if tt.wantErr != "" {
				var pe *ProtocolError
				if !errors.As(err, &pe) {
					t.Fatalf("ReadCommand() error = %v, want *ProtocolError", err)
				}
				if pe.Message != tt.wantErr {
					t.Errorf("message = %q, want %q", pe.Message, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadCommand() error = %v", err)
			}
			if cmd.Name != tt.wantName || string(cmd.Script) != tt.wantScript {
				t.Errorf("ReadCommand() = %s %q, want %s %q", cmd.Name, cmd.Script, tt.wantName, tt.wantScript)
			}
		})
	}
}

func TestReadCommand_UnknownWrapsSentinel(t *testing.T) {
	_, err := ReadCommand(bufio.NewReader(strings.NewReader("NOPE\n")), 0)
	if !errors.Is(err, ErrNoSuchCommand) {
		t.Errorf("error = %v, want ErrNoSuchCommand", err)
	}
}

func TestWriteCommand(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCommand(&buf, Command{Name: CommandRun, Script: []byte("robot.say('hi')")}); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "RUN\n15\nrobot.say('hi')"; got != want {
		t.Errorf("WriteCommand(RUN) = %q, want %q", got, want)
	}

	buf.Reset()
	if err := WriteCommand(&buf, Command{Name: CommandStop}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "STOP\n" {
		t.Errorf("WriteCommand(STOP) = %q", got)
	}
}

func TestFormatAndParseReply(t *testing.T) {
	if got := string(FormatReply(nil)); got != "OK" {
		t.Errorf("FormatReply(nil) = %q", got)
	}
	if got := string(FormatReply(errors.New("line 1\nline 2"))); got != "ERROR;line 1 line 2" {
		t.Errorf("FormatReply(err) = %q", got)
	}

	if err := ParseReply([]byte("OK")); err != nil {
		t.Errorf("ParseReply(OK) = %v", err)
	}
	err := ParseReply([]byte("ERROR;routine:1: bad side"))
	var re *ReplyError
	if !errors.As(err, &re) || re.Message != "routine:1: bad side" {
		t.Errorf("ParseReply(ERROR) = %v", err)
	}
	if !errors.Is(err, ErrCommandFailed) {
		t.Error("ReplyError should match ErrCommandFailed")
	}
	if err := ParseReply([]byte("")); err == nil {
		t.Error("ParseReply(empty) should fail")
	}
}
