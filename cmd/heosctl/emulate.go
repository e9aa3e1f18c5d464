package main

import (
	"fmt"
	"time"

	"mini-heos/config"
	"mini-heos/registry"
	"mini-heos/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEmulateCmd(a *app) *cobra.Command {
	var (
		listen  string
		name    string
		players []string
	)
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Run a HEOS device emulator",
		Long: "Run a HEOS device emulator. With discovery.mode set to etcd or mdns the " +
			"emulator registers itself so other heosctl instances can discover it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := server.NewServer(a.logger)
			list := make([]server.Player, len(players))
			for i, p := range players {
				list[i] = server.Player{Name: p, PlayerID: int64(i + 1), Model: "Emulator", Version: "1.0.0"}
			}
			server.NewDevice(srv, list...)
			if err := srv.Listen("tcp", listen); err != nil {
				return err
			}

			var reg registry.Registry
			if a.cfg.Discovery.Mode != config.ModeStatic {
				var err error
				if reg, err = a.registry(); err != nil {
					return err
				}
			}

			errc := make(chan error, 1)
			go func() {
				errc <- srv.Serve(registry.DeviceInstance{Name: name, Model: "Emulator", Version: "1.0.0"}, reg)
			}()
			a.logger.Info("emulator listening", zap.Stringer("addr", srv.Addr()), zap.Int("players", len(list)))
			a.printf("emulating %q on %s\n", name, srv.Addr())

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}
			if err := srv.Shutdown(5 * time.Second); err != nil {
				return fmt.Errorf("emulator shutdown: %w", err)
			}
			return <-errc
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:1255", "listen address")
	cmd.Flags().StringVar(&name, "name", "heosctl emulator", "device name to advertise")
	cmd.Flags().StringSliceVar(&players, "player", []string{"Living Room"}, "player names (repeatable)")
	return cmd
}
