package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
)

func leCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "le",
		Short: "Low-energy scanning",
	}
	cmd.AddCommand(leScanCmd())
	return cmd
}

// leScanCmd starts a subscribed LE scan and streams discovered-device
// events until interrupted. The scan itself is torn down by btmgrd when
// this process disappears from the bus (Ctrl+C closes the connection),
// there is no separate cancel call.
func leScanCmd() *cobra.Command {
	var address, name, serviceUUID string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Start an LE scan and stream discovered devices until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sigCh := make(chan *dbus.Signal, 32)
			client.conn.Signal(sigCh)
			if err := client.conn.AddMatchSignal(
				dbus.WithMatchInterface(ifaceName),
				dbus.WithMatchMember("Event"),
				dbus.WithMatchObjectPath("/le"),
			); err != nil {
				return fmt.Errorf("watch le events: %w", err)
			}
			defer client.conn.RemoveSignal(sigCh)

			req := map[string]any{
				"adapterAddress": address,
				"name":           name,
				"serviceUuid":    serviceUUID,
				"subscribe":      true,
			}
			var resp struct {
				ReturnValue bool     `json:"returnValue"`
				ScanID      int      `json:"scanId"`
				Devices     []device `json:"devices"`
			}
			if err := client.call("le", "startScan", req, &resp); err != nil {
				return err
			}
			fmt.Printf("scan started (id=%d)\n", resp.ScanID)

			for {
				select {
				case <-ctx.Done():
					return nil
				case sig := <-sigCh:
					if len(sig.Body) != 1 {
						continue
					}
					raw, ok := sig.Body[0].(string)
					if !ok {
						continue
					}
					var d device
					if err := json.Unmarshal([]byte(raw), &d); err != nil {
						continue
					}
					fmt.Print(formatDevice(&d, outputFormat))
				}
			}
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	cmd.Flags().StringVar(&name, "name", "", "filter by advertised name")
	cmd.Flags().StringVar(&serviceUUID, "service-uuid", "", "filter by advertised service UUID")
	return cmd
}
