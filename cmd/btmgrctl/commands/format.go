package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var (
	// errUnsupportedFormat is returned when the requested output format is not supported.
	errUnsupportedFormat = errors.New("unsupported output format")

	// errUnrecognizedPowerState is returned when "adapter power" gets
	// anything other than "on" or "off".
	errUnrecognizedPowerState = errors.New("expected \"on\" or \"off\"")

	// errDeviceNotFound is not returned by any command; the device commands
	// only list devices.
	errDeviceNotFound = errors.New("device not found")
)

func formatAdapterStatus(s *adapterStatus, format string) string {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Sprintf("marshal adapter status: %v\n", err)
		}
		return string(data) + "\n"
	default:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Address:\t%s\n", s.AdapterAddress)
		fmt.Fprintf(w, "Name:\t%s\n", s.Name)
		fmt.Fprintf(w, "Powered:\t%v\n", s.Powered)
		fmt.Fprintf(w, "Discoverable:\t%v\n", s.Discoverable)
		fmt.Fprintf(w, "Pairable:\t%v\n", s.Pairable)
		fmt.Fprintf(w, "Pairing:\t%v\n", s.Pairing)
		fmt.Fprintf(w, "Discovering:\t%v\n", s.Discovering)
		fmt.Fprintf(w, "Class of Device:\t0x%06x\n", s.ClassOfDevice)
		_ = w.Flush()
		return buf.String()
	}
}

func formatDevice(d *device, format string) string {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Sprintf("marshal device: %v\n", err)
		}
		return string(data) + "\n"
	default:
		return formatDeviceLine(d) + "\n"
	}
}

func formatDevices(devices []*device, format string) string {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(devices, "", "  ")
		if err != nil {
			return fmt.Sprintf("marshal devices: %v\n", err)
		}
		return string(data) + "\n"
	default:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tNAME\tPAIRED\tTRUSTED\tBLOCKED\tCLASS")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%v\t0x%06x\n",
				d.Address, d.Name, d.Paired, d.Trusted, d.Blocked, d.ClassOfDevice)
		}
		_ = w.Flush()
		return buf.String()
	}
}

func formatDeviceLine(d *device) string {
	return fmt.Sprintf("%s  name=%q paired=%v trusted=%v rssi=%d", d.Address, d.Name, d.Paired, d.Trusted, d.RSSI)
}
