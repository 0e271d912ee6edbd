package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/correlator"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/port"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

// controller is the part of a remote port the subcommands drive.
type controller interface {
	port.Port
	port.Purger
	Signature() (string, error)
	QuerySettings() (port.Settings, error)
}

type portInfo struct {
	Target      string `yaml:"target"`
	Signature   string `yaml:"signature,omitempty"`
	BaudRate    int    `yaml:"baud_rate"`
	Mode        string `yaml:"mode"`
	FlowControl string `yaml:"flow_control"`
}

func newInfoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [url]",
		Short: "Print the server signature and current line settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, _ := cmd.Flags().GetBool("apply")
			c, err := a.openController(cmd, apply)
			if err != nil {
				return err
			}
			defer c.Close()
			return printInfo(cmd.OutOrStdout(), a.cfg.Address, c)
		},
	}
	cmd.Flags().Bool("apply", false, "apply baud/mode/flow before querying")
	return cmd
}

func newPurgeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge [url]",
		Short: "Flush the server's receive and/or transmit buffer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("target")
			target, err := parsePurgeTarget(name)
			if err != nil {
				return err
			}
			c, err := a.openController(cmd, false)
			if err != nil {
				return err
			}
			defer c.Close()

			got, err := c.Purge(target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", got)
			return nil
		},
	}
	cmd.Flags().String("target", "both", "buffer to purge: rx, tx or both")
	return cmd
}

func (a *app) openController(cmd *cobra.Command, applySettings bool) (controller, error) {
	opts, err := a.portOptions(applySettings)
	if err != nil {
		return nil, err
	}
	p, err := a.registry.Open(cmd.Context(), a.cfg.Address, opts)
	if err != nil {
		return nil, err
	}
	c, ok := p.(controller)
	if !ok {
		p.Close()
		return nil, fmt.Errorf("%s: port does not support control commands", a.cfg.Address)
	}
	return c, nil
}

func printInfo(w io.Writer, target string, c controller) error {
	info := portInfo{Target: target}

	sig, err := c.Signature()
	switch {
	case errors.Is(err, correlator.ErrNoResponse):
		// signature is optional for servers
	case err != nil:
		return fmt.Errorf("signature: %w", err)
	default:
		info.Signature = sig
	}

	s, err := c.QuerySettings()
	if err != nil {
		return err
	}
	info.BaudRate = s.BaudRate
	info.Mode = s.ModeString()
	info.FlowControl = s.FlowControl.String()

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(info)
}

func parsePurgeTarget(name string) (rfc2217.PurgeTarget, error) {
	switch name {
	case "rx":
		return rfc2217.PurgeReceive, nil
	case "tx":
		return rfc2217.PurgeTransmit, nil
	case "both", "":
		return rfc2217.PurgeBoth, nil
	}
	return 0, fmt.Errorf("%w: purge target %q", rfc2217.ErrInvalidArgument, name)
}
