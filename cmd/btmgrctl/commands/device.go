package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// device mirrors the JSON shape of internal/inventory.Device's exported
// fields that btmgrctl renders.
type device struct {
	Address       string `json:"address"`
	Name          string `json:"name,omitempty"`
	ClassOfDevice uint32 `json:"classOfDevice"`
	Paired        bool   `json:"paired"`
	Trusted       bool   `json:"trusted"`
	Blocked       bool   `json:"blocked"`
	RSSI          int16  `json:"rssi,omitempty"`
}

func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Inspect discovered and paired devices",
	}
	cmd.AddCommand(devicePairedCmd())
	cmd.AddCommand(deviceDiscoveredCmd())
	return cmd
}

func devicePairedCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "paired",
		Short: "List paired devices",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var resp struct {
				Devices []*device `json:"devices"`
			}
			req := map[string]string{"adapterAddress": address}
			if err := client.call("device", "getPairedDevices", req, &resp); err != nil {
				return err
			}
			fmt.Print(formatDevices(resp.Devices, outputFormat))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	return cmd
}

func deviceDiscoveredCmd() *cobra.Command {
	var address, serviceUUID string
	cmd := &cobra.Command{
		Use:   "discovered",
		Short: "List devices seen during classic/dual discovery",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var resp struct {
				Devices []*device `json:"devices"`
			}
			req := map[string]string{"adapterAddress": address, "serviceUuid": serviceUUID}
			if err := client.call("device", "getDiscoveredDevice", req, &resp); err != nil {
				return err
			}
			fmt.Print(formatDevices(resp.Devices, outputFormat))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	cmd.Flags().StringVar(&serviceUUID, "service-uuid", "", "filter to devices advertising this service UUID")
	return cmd
}
