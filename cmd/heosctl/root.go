package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"mini-heos/client"
	"mini-heos/command"
	"mini-heos/message"
	"mini-heos/registry"
	"mini-heos/server"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "heosctl",
		Short:         "Control HEOS devices over the CLI protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "config file (.toml, .yaml)")
	f.StringVar(&a.addr, "addr", "", "device address, host[:port]")
	f.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVar(&a.jsonOutput, "json", false, "print JSON")

	root.AddCommand(
		newPlayersCmd(a),
		newStateCmd(a),
		newVolumeCmd(a),
		newMuteCmd(a),
		newEventsCmd(a),
		newDiscoverCmd(a),
		newRawCmd(a),
		newHeartbeatCmd(a),
		newEmulateCmd(a),
	)
	return root
}

// withClient connects, runs fn and closes the connection.
func withClient(a *app, cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	ctx := cmd.Context()
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

func parsePID(s string) (int64, error) {
	pid, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid player id %q", s)
	}
	return pid, nil
}

func newPlayersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(a, cmd, func(ctx context.Context, c *client.Client) error {
				var players []server.Player
				if err := c.ExecuteInto(ctx, command.GetPlayers{}, &players); err != nil {
					return err
				}
				return a.print(players, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "PID\tNAME\tMODEL\tVERSION")
					for _, p := range players {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.PlayerID, p.Name, p.Model, p.Version)
					}
					tw.Flush()
				})
			})
		},
	}
}

func newStateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "state <pid> [play|pause|stop]",
		Short: "Show or set the play state of a player",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}
			return withClient(a, cmd, func(ctx context.Context, c *client.Client) error {
				var cmdToRun command.Command = command.GetPlayState{PlayerID: pid}
				if len(args) == 2 {
					state, err := message.ParsePlayState(args[1])
					if err != nil {
						return err
					}
					cmdToRun = command.SetPlayState{PlayerID: pid, State: state}
				}
				return a.printResponse(ctx, c, cmdToRun)
			})
		},
	}
}

func newVolumeCmd(a *app) *cobra.Command {
	var step uint8
	cmd := &cobra.Command{
		Use:   "volume <pid> [level|up|down]",
		Short: "Show or change the volume of a player",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}
			var run command.Command = command.GetVolume{PlayerID: pid}
			if len(args) == 2 {
				switch args[1] {
				case "up":
					run = command.VolumeUp{PlayerID: pid, Step: step}
				case "down":
					run = command.VolumeDown{PlayerID: pid, Step: step}
				default:
					level, err := strconv.ParseUint(args[1], 10, 8)
					if err != nil || level > command.MaxVolume {
						return fmt.Errorf("volume must be 0-%d, up or down", command.MaxVolume)
					}
					run = command.SetVolume{PlayerID: pid, Level: uint8(level)}
				}
			}
			return withClient(a, cmd, func(ctx context.Context, c *client.Client) error {
				return a.printResponse(ctx, c, run)
			})
		},
	}
	cmd.Flags().Uint8Var(&step, "step", 0, "step for up/down (1-10)")
	return cmd
}

func newMuteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mute <pid> [on|off|toggle]",
		Short: "Show or change the mute state of a player",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}
			var run command.Command = command.GetMute{PlayerID: pid}
			if len(args) == 2 {
				if args[1] == "toggle" {
					run = command.ToggleMute{PlayerID: pid}
				} else {
					v, err := message.ParseOnOff(args[1])
					if err != nil {
						return err
					}
					run = command.SetMute{PlayerID: pid, State: v}
				}
			}
			return withClient(a, cmd, func(ctx context.Context, c *client.Client) error {
				return a.printResponse(ctx, c, run)
			})
		},
	}
}

func newEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print change events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(a, cmd, func(ctx context.Context, c *client.Client) error {
				if _, err := c.Execute(ctx, command.RegisterForChangeEvents{Enable: message.On}); err != nil {
					return err
				}
				events := c.Events()
				for {
					select {
					case <-ctx.Done():
						return nil
					case ev, ok := <-events:
						if !ok {
							return fmt.Errorf("connection to %s closed", c.Addr())
						}
						if err := a.print(ev, func(w io.Writer) {
							fmt.Fprintf(w, "%s %s %s\n", time.Now().Format(time.TimeOnly), ev.EventName, ev.Message.Raw)
						}); err != nil {
							return err
						}
					}
				}
			})
		},
	}
}

func newDiscoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "List devices found by the configured discovery mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			devices, err := reg.Discover(cmd.Context())
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				return registry.ErrNoDevices
			}
			return a.print(devices, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tADDR\tMODEL\tVERSION")
				for _, d := range devices {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Addr, d.Model, d.Version)
				}
				tw.Flush()
			})
		},
	}
}

func newRawCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <command>",
		Short: "Send a command such as heos://player/get_players",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(a, cmd, func(ctx context.Context, c *client.Client) error {
				return a.printResponse(ctx, c, command.Raw(args[0]))
			})
		},
	}
}

func newHeartbeatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat",
		Short: "Check that the device answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(a, cmd, func(ctx context.Context, c *client.Client) error {
				start := time.Now()
				if _, err := c.Execute(ctx, command.HeartBeat{}); err != nil {
					return err
				}
				rtt := time.Since(start)
				return a.print(map[string]any{"addr": c.Addr(), "rtt_ms": rtt.Milliseconds()}, func(w io.Writer) {
					fmt.Fprintf(w, "%s answered in %s\n", c.Addr(), rtt.Round(time.Microsecond))
				})
			})
		},
	}
}

// printResponse executes run and prints the response message and payload.
func (a *app) printResponse(ctx context.Context, c *client.Client, run command.Command) error {
	resp, err := c.Execute(ctx, run)
	if err != nil {
		return err
	}
	return a.print(resp, func(w io.Writer) {
		fmt.Fprintln(w, resp.CommandName)
		if !resp.Message.IsEmpty() {
			fmt.Fprintln(w, "  message:", resp.Message.Raw)
		}
		if resp.Payload != nil {
			fmt.Fprintln(w, "  payload:", string(resp.Payload))
		}
		if resp.Options != nil {
			fmt.Fprintln(w, "  options:", string(resp.Options))
		}
	})
}
