package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"
	"time"
)

// Defaults applied by NewServer.
const (
	DefaultReadTimeout   = 10 * time.Second
	DefaultMaxScriptSize = 1 << 20
	writeTimeout         = 5 * time.Second
)

// Handler executes decoded commands.
type Handler interface {
	HandleRun(ctx context.Context, script []byte) error
	HandleStop()
}

// Logger is the logging interface used by the control package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Server.
type Options struct {
	ReadTimeout   time.Duration
	MaxScriptSize int
	Logger        Logger
}

// Server accepts control connections and serves them one at a time.
type Server struct {
	network string
	address string
	handler Handler
	opts    Options
	logger  Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a server for listenURL (unix:// or tcp://).
func NewServer(listenURL string, handler Handler, opts Options) (*Server, error) {
	network, address, err := ParseListenURL(listenURL)
	if err != nil {
		return nil, err
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.MaxScriptSize <= 0 {
		opts.MaxScriptSize = DefaultMaxScriptSize
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Server{
		network: network,
		address: address,
		handler: handler,
		opts:    opts,
		logger:  opts.Logger,
	}, nil
}

// ParseListenURL splits a unix:// or tcp:// URL into a network and address.
func ParseListenURL(listenURL string) (network, address string, err error) {
	u, err := url.Parse(listenURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "unix":
		if u.Path == "" {
			return "", "", fmt.Errorf("unix URL %q has no path", listenURL)
		}
		return "unix", u.Path, nil
	case "tcp":
		if u.Host == "" {
			return "", "", fmt.Errorf("tcp URL %q has no host", listenURL)
		}
		return "tcp", u.Host, nil
	default:
		return "", "", fmt.Errorf("unsupported scheme %q (use unix or tcp)", u.Scheme)
	}
}

// Start listens and serves connections in the background until ctx is
// cancelled or Close is called. A stale unix socket file is removed first.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("control server already started")
	}
	if s.network == "unix" {
		if err := os.Remove(s.address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing stale socket %s: %w", s.address, err)
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, s.network, s.address)
	if err != nil {
		return fmt.Errorf("listening on %s %s: %w", s.network, s.address, err)
	}
	s.listener = ln
	s.done = make(chan struct{})

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	go func() {
		defer close(s.done)
		defer stop()
		s.serve(ctx, ln)
	}()

	s.logger.Info("control server listening", "network", s.network, "address", s.address)
	return nil
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting connections and waits for the connection in
// progress to be answered.
func (s *Server) Close() error {
	s.mu.Lock()
	ln, done := s.listener, s.done
	s.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := ln.Close()
	<-done
	if s.network == "unix" {
		_ = os.Remove(s.address)
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Server) serve(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.logger.Warn("control accept failed", "error", err)
			continue
		}
		s.handle(ctx, conn)
	}
}

// handle answers exactly one command and closes conn.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
		s.logger.Warn("setting control read deadline", "error", err)
	}

	cmd, err := ReadCommand(bufio.NewReader(conn), s.opts.MaxScriptSize)
	if err != nil {
		var pe *ProtocolError
		if !errors.As(err, &pe) {
			s.logger.Warn("reading control command", "error", err)
			return
		}
		s.logger.Warn("control protocol error", "error", err)
		s.reply(conn, err)
		return
	}

	switch cmd.Name {
	case CommandRun:
		err := s.handler.HandleRun(ctx, cmd.Script)
		s.logger.Debug("control RUN", "size", len(cmd.Script), "error", err)
		s.reply(conn, err)
	case CommandStop:
		s.handler.HandleStop()
		s.logger.Debug("control STOP")
		s.reply(conn, nil)
	}
}

func (s *Server) reply(conn net.Conn, err error) {
	if dErr := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); dErr != nil {
		s.logger.Warn("setting control write deadline", "error", dErr)
	}
	if _, wErr := conn.Write(FormatReply(err)); wErr != nil {
		s.logger.Warn("writing control reply", "error", wErr)
	}
}
