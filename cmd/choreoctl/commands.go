package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/choreo-core/internal/control"
	"github.com/nerrad567/choreo-core/internal/robot"
	"github.com/nerrad567/choreo-core/internal/slots"
)

const (
	defaultSocket  = "unix:///tmp/robot-control"
	defaultAPI     = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
)

type options struct {
	socket  string
	api     string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "choreoctl",
		Short:         "Control a choreo robot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.socket, "socket", envOr("CHOREO_CONTROL_LISTEN", defaultSocket), "Control socket URL (unix:///path or tcp://host:port)")
	root.PersistentFlags().StringVar(&opts.api, "api", envOr("CHOREO_API_URL", defaultAPI), "HTTP API base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "Request timeout")

	root.AddCommand(
		newRunCmd(opts),
		newStopCmd(opts),
		newStatusCmd(opts),
		newSlotsCmd(opts),
	)
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file|->",
		Short: "Load a routine script, replacing the current one",
		Long: `Send a Lua routine over the control socket. Use "-" to read the
script from standard input. A script error is printed and the previously
loaded routine keeps running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			client, err := opts.controlClient()
			if err != nil {
				return err
			}
			if err := client.Run(cmd.Context(), script); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), control.ReplyOK)
			return nil
		},
	}
}

func newStopCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the current routine and return to manual drive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.controlClient()
			if err != nil {
				return err
			}
			if err := client.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), control.ReplyOK)
			return nil
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the robot's mode and loaded routine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st robot.Status
			if err := opts.getJSON(cmd.Context(), "/api/v1/status", &st); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "robot:   %s\n", st.RobotID)
			fmt.Fprintf(w, "mode:    %s\n", st.Mode)
			if st.RoutineID != "" {
				fmt.Fprintf(w, "routine: %s\n", st.RoutineID)
			}
			fmt.Fprintf(w, "actions: %d\n", st.ActiveActions)
			return nil
		},
	}
}

func newSlotsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Read the programs saved in the web editor",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list []slots.Slot
			if err := opts.getJSON(cmd.Context(), "/api/v1/slots", &list); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNAME\tLINES")
			for i, s := range list {
				fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, s.Name, lineCount(s.Data))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <number>",
		Short: "Print one slot's program, e.g. choreoctl slots get 2 | choreoctl run -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("slot number must be a positive integer, got %q", args[0])
			}
			var list []slots.Slot
			if err := opts.getJSON(cmd.Context(), "/api/v1/slots", &list); err != nil {
				return err
			}
			if n > len(list) {
				return fmt.Errorf("slot %d does not exist (%d slots)", n, len(list))
			}
			_, err = io.WriteString(cmd.OutOrStdout(), list[n-1].Data)
			return err
		},
	})
	return cmd
}

func (o *options) controlClient() (*control.Client, error) {
	client, err := control.NewClient(o.socket)
	if err != nil {
		return nil, err
	}
	client.Timeout = o.timeout
	return client, nil
}

// getJSON fetches path from the API and decodes the body into v.
func (o *options) getJSON(ctx context.Context, path string, v any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	url := strings.TrimRight(o.api, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Message)
		}
		return fmt.Errorf("%s: unexpected status", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func readScript(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading script from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return data, nil
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
