package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// adapterStatus mirrors internal/adapter.StatusEvent's JSON shape; btmgrctl
// decodes into its own copy rather than importing the daemon's internal
// packages.
type adapterStatus struct {
	AdapterAddress string `json:"adapterAddress"`
	Powered        bool   `json:"powered"`
	Name           string `json:"name,omitempty"`
	Discoverable   bool   `json:"discoverable"`
	Pairable       bool   `json:"pairable"`
	Pairing        bool   `json:"pairing"`
	Discovering    bool   `json:"discovering"`
	ClassOfDevice  uint32 `json:"classOfDevice"`
}

func adapterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adapter",
		Short: "Manage Bluetooth adapters",
	}

	cmd.AddCommand(adapterStatusCmd())
	cmd.AddCommand(adapterPowerCmd())
	cmd.AddCommand(adapterDiscoveryCmd())
	cmd.AddCommand(adapterPairCmd())
	cmd.AddCommand(adapterUnpairCmd())
	cmd.AddCommand(adapterCancelPairingCmd())

	return cmd
}

func adapterStatusCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show adapter status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var status adapterStatus
			if err := client.call("adapter", "getStatus", map[string]string{"adapterAddress": address}, &status); err != nil {
				return err
			}
			fmt.Print(formatAdapterStatus(&status, outputFormat))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	return cmd
}

func adapterPowerCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "power <on|off>",
		Short: "Power an adapter on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			powered, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			var resp struct {
				ReturnValue bool `json:"returnValue"`
			}
			req := map[string]any{"adapterAddress": address, "powered": powered}
			if err := client.call("adapter", "setState", req, &resp); err != nil {
				return err
			}
			fmt.Printf("adapter power set: %v\n", resp.ReturnValue)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	return cmd
}

func adapterDiscoveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Control classic/dual discovery",
	}
	cmd.AddCommand(adapterDiscoveryStartCmd())
	cmd.AddCommand(adapterDiscoveryStopCmd())
	return cmd
}

func adapterDiscoveryStartCmd() *cobra.Command {
	var address, transport string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start discovery",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			req := map[string]string{"adapterAddress": address, "transport": transport}
			var resp struct {
				ReturnValue bool `json:"returnValue"`
			}
			if err := client.call("adapter", "startDiscovery", req, &resp); err != nil {
				return err
			}
			fmt.Printf("discovery started: %v\n", resp.ReturnValue)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	cmd.Flags().StringVar(&transport, "transport", "bredr", "transport: bredr, le, dual")
	return cmd
}

func adapterDiscoveryStopCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Cancel discovery",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			req := map[string]string{"adapterAddress": address}
			var resp struct {
				ReturnValue bool `json:"returnValue"`
			}
			if err := client.call("adapter", "cancelDiscovery", req, &resp); err != nil {
				return err
			}
			fmt.Printf("discovery cancelled: %v\n", resp.ReturnValue)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	return cmd
}

func adapterPairCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "pair <device-address>",
		Short: "Pair with a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			req := map[string]string{"adapterAddress": address, "address": args[0]}
			var resp struct {
				ReturnValue bool `json:"returnValue"`
			}
			if err := client.call("adapter", "pair", req, &resp); err != nil {
				return err
			}
			fmt.Printf("pair requested: %v\n", resp.ReturnValue)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	return cmd
}

func adapterUnpairCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "unpair <device-address>",
		Short: "Remove a paired device",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			req := map[string]string{"adapterAddress": address, "address": args[0]}
			var resp struct {
				ReturnValue bool `json:"returnValue"`
			}
			if err := client.call("adapter", "unpair", req, &resp); err != nil {
				return err
			}
			fmt.Printf("unpair requested: %v\n", resp.ReturnValue)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	return cmd
}

func adapterCancelPairingCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "cancel-pairing <device-address>",
		Short: "Cancel an in-progress pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			req := map[string]string{"adapterAddress": address, "address": args[0]}
			var resp struct {
				ReturnValue bool `json:"returnValue"`
			}
			if err := client.call("adapter", "cancelPairing", req, &resp); err != nil {
				return err
			}
			fmt.Printf("pairing cancelled: %v\n", resp.ReturnValue)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "adapter", "", "adapter address (defaults to the primary adapter)")
	return cmd
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", errUnrecognizedPowerState, s)
	}
}
