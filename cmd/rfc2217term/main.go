package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/config"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/port"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/session"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/telnet"
)

// Build-time variables (set via ldflags)
var (
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := newRootCmd(newApp()).Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	registry *port.Registry
}

// newApp registers the supported port schemes.
func newApp() *app {
	a := &app{registry: port.NewRegistry()}
	a.registry.Register(port.DefaultScheme, port.RemoteFactory)
	return a
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rfc2217term [url]",
		Short: "Terminal to a serial port on an RFC 2217 access server",
		Long: `Connects stdin/stdout to a serial port exported by an RFC 2217 access server.

The target is rfc2217://host:port (or plain host:port) and may carry
baud, mode and flow query parameters, e.g. rfc2217://10.0.0.5:4001?baud=115200&mode=8E1.`,
		Version:           fmt.Sprintf("build %s, commit %s", BuildDate, GitCommit),
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
		RunE:              a.runTerminal,
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "YAML config file (default $CONFIG_FILE)")
	pf.IntP("baud", "b", 0, "baud rate (default 9600)")
	pf.StringP("mode", "m", "", "data bits, parity and stop bits, e.g. 8N1, 7E2 (default 8N1)")
	pf.String("flow", "", "flow control: none, rtscts, xonxoff, rtscts-in, xonxoff-in")
	pf.Duration("response-timeout", 0, "time to wait for a server reply (default 1s)")
	pf.Bool("proxy-protocol", false, "send a PROXY protocol v1 header after connecting")
	pf.BoolP("debug", "d", false, "log wire traffic")
	root.Flags().Bool("vcom-sync", false, "apply USR-VCOM baud sync packets from stdin to the port")

	root.AddCommand(newInfoCmd(a), newPurgeCmd(a))
	return root
}

// loadConfig builds a.cfg from env/file and lets explicit flags override it.
func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if path, _ := flags.GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return err
		}
	}
	if flags.Changed("baud") {
		cfg.BaudRate, _ = flags.GetInt("baud")
	}
	if flags.Changed("mode") {
		cfg.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("flow") {
		cfg.FlowControl, _ = flags.GetString("flow")
	}
	if flags.Changed("response-timeout") {
		cfg.ResponseTimeout, _ = flags.GetDuration("response-timeout")
	}
	if flags.Changed("proxy-protocol") {
		cfg.ProxyProtocol, _ = flags.GetBool("proxy-protocol")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("vcom-sync") {
		cfg.VCOMSync, _ = flags.GetBool("vcom-sync")
	}
	if len(args) > 0 {
		cfg.Address = args[0]
	}
	if cfg.Address == "" {
		return fmt.Errorf("no target: pass a URL or set RFC2217_ADDR")
	}
	a.cfg = cfg
	return nil
}

// portOptions converts the config. applySettings controls whether the
// line is reconfigured on open.
func (a *app) portOptions(applySettings bool) (port.Options, error) {
	cfg := a.cfg
	opts := port.Options{
		Telnet: telnet.Options{
			DialTimeout:   cfg.DialTimeout,
			KeepAlive:     cfg.KeepAlive,
			IdleTimeout:   cfg.IdleTimeout,
			ProxyProtocol: cfg.ProxyProtocol,
			Debug:         cfg.Debug,
		},
		NegotiationTimeout: cfg.NegotiationTimeout,
		ResponseTimeout:    cfg.ResponseTimeout,
		Debug:              cfg.Debug,
	}
	if !applySettings {
		return opts, nil
	}

	s := port.DefaultSettings()
	s.BaudRate = cfg.BaudRate
	if err := s.SetMode(cfg.Mode); err != nil {
		return opts, err
	}
	flow, err := port.ParseFlowControl(cfg.FlowControl)
	if err != nil {
		return opts, err
	}
	s.FlowControl = flow
	opts.Settings = &s
	return opts, nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (a *app) runTerminal(cmd *cobra.Command, args []string) error {
	log.Printf("rfc2217term starting... (build: %s, commit: %s)", BuildDate, GitCommit)
	log.Printf("Config: target=%s baud=%d mode=%s flow=%s response_timeout=%v debug=%v",
		a.cfg.Address, a.cfg.BaudRate, a.cfg.Mode, a.cfg.FlowControl, a.cfg.ResponseTimeout, a.cfg.Debug)

	opts, err := a.portOptions(true)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	p, err := a.registry.Open(ctx, a.cfg.Address, opts)
	if err != nil {
		return err
	}

	sess := session.New(a.cfg.Address, newTerminal(cmd.InOrStdin(), cmd.OutOrStdout()), p)
	sess.Debug = a.cfg.Debug
	sess.VCOMSync = a.cfg.VCOMSync
	log.Printf("[session] started: id=%s target=%s", sess.ID, sess.Target)

	err = session.NewBridge(sess).Run(ctx)

	info := sess.Info()
	log.Printf("[session] ended: id=%s target=%s bytes_in=%d bytes_out=%d duration=%.1fs",
		info.ID, info.Target, info.BytesIn, info.BytesOut, info.DurationSecs)
	return err
}

// terminal adapts stdin/stdout to an io.ReadWriteCloser whose Close
// unblocks a pending Read.
type terminal struct {
	r *io.PipeReader
	w io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	pr, pw := io.Pipe()
	go func() {
		_, err := io.Copy(pw, in)
		pw.CloseWithError(err)
	}()
	return &terminal{r: pr, w: out}
}

func (t *terminal) Read(p []byte) (int, error)  { return t.r.Read(p) }
func (t *terminal) Write(p []byte) (int, error) { return t.w.Write(p) }
func (t *terminal) Close() error                { return t.r.Close() }
