package port

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/correlator"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/negotiation"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/telnet"
)

// RemotePort is a serial port on an RFC 2217 access server.
type RemotePort struct {
	addr string
	opts Options

	mu       sync.Mutex
	client   *telnet.Client
	corr     *correlator.Correlator
	settings Settings
}

// NewRemotePort creates a port for the server at addr (host:port). Call
// Open before use.
func NewRemotePort(addr string, opts Options) *RemotePort {
	return &RemotePort{addr: addr, opts: opts}
}

// RemoteFactory is the registry Factory for rfc2217:// URLs.
func RemoteFactory(addr string, opts Options) (Port, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty address", rfc2217.ErrInvalidArgument)
	}
	return NewRemotePort(addr, opts), nil
}

// Addr returns the server address.
func (p *RemotePort) Addr() string { return p.addr }

// Open connects, negotiates COM-PORT-OPTION and applies Options.Settings.
func (p *RemotePort) Open(ctx context.Context) error {
	client, err := telnet.Dial(ctx, p.addr, p.opts.Telnet)
	if err != nil {
		return err
	}
	if err := p.attach(client); err != nil {
		client.Close()
		return err
	}

	if p.opts.Settings != nil {
		if _, err := p.Configure(*p.opts.Settings); err != nil {
			p.Close()
			return fmt.Errorf("configure %s: %w", p.addr, err)
		}
	}
	return nil
}

// attach wires the protocol state to a started telnet client and waits for
// the server to accept COM-PORT-OPTION.
func (p *RemotePort) attach(client *telnet.Client) error {
	p.mu.Lock()
	if p.client != nil {
		p.mu.Unlock()
		return ErrAlreadyOpen
	}
	tracker := negotiation.NewTracker()
	corr := correlator.New(client, p.opts.ResponseTimeout, p.opts.Debug)
	adapter := correlator.NewOptionAdapter(corr, nil, p.opts.Debug)

	client.OnNegotiation(tracker.Notify)
	client.HandleSubnegotiation(rfc2217.ComPortOption, adapter.HandleSubnegotiation)
	client.OnClose(func() {
		tracker.Close()
		corr.Close()
	})
	p.client, p.corr = client, corr
	p.mu.Unlock()

	client.Start()

	for _, opt := range []byte{rfc2217.TransmitBinaryOption, rfc2217.SuppressGoAheadOption} {
		if err := client.RequestWill(opt); err != nil {
			return p.detach(err)
		}
		if err := client.RequestDo(opt); err != nil {
			return p.detach(err)
		}
	}
	if err := client.RequestWill(rfc2217.ComPortOption); err != nil {
		return p.detach(err)
	}
	if err := tracker.AwaitWillAccept(rfc2217.ComPortOption, p.opts.negotiationTimeout()); err != nil {
		log.Printf("[port] %s: COM-PORT-OPTION not accepted: %v", p.addr, err)
		return p.detach(err)
	}
	log.Printf("[port] %s: COM-PORT-OPTION accepted", p.addr)
	return nil
}

func (p *RemotePort) detach(err error) error {
	p.mu.Lock()
	p.client, p.corr = nil, nil
	p.mu.Unlock()
	return err
}

func (p *RemotePort) conn() (*telnet.Client, *correlator.Correlator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil, nil, ErrNotOpen
	}
	return p.client, p.corr, nil
}

// Read reads data received from the serial line.
func (p *RemotePort) Read(b []byte) (int, error) {
	client, _, err := p.conn()
	if err != nil {
		return 0, err
	}
	return client.Read(b)
}

// Write sends data to the serial line.
func (p *RemotePort) Write(b []byte) (int, error) {
	client, _, err := p.conn()
	if err != nil {
		return 0, err
	}
	return client.Write(b)
}

// Close closes the connection. Requests blocked on a reply fail with
// waitcond.ErrClosed.
func (p *RemotePort) Close() error {
	p.mu.Lock()
	client := p.client
	p.client, p.corr = nil, nil
	p.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Done is closed when the connection goes away. It returns nil if the port
// is not open.
func (p *RemotePort) Done() <-chan struct{} {
	client, _, err := p.conn()
	if err != nil {
		return nil
	}
	return client.Done()
}

// Settings returns the line settings last confirmed by the server.
func (p *RemotePort) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

func (p *RemotePort) update(fn func(s *Settings)) {
	p.mu.Lock()
	fn(&p.settings)
	p.mu.Unlock()
}

// exchange sends cmd and returns the server reply as C.
func exchange[C rfc2217.ControlCmd](p *RemotePort, cmd rfc2217.ControlCmd) (C, error) {
	var zero C
	_, corr, err := p.conn()
	if err != nil {
		return zero, err
	}
	resp, err := corr.Send(cmd)
	if err != nil {
		if errors.Is(err, correlator.ErrNoResponse) {
			log.Printf("[port] %s: no response to %s within %v", p.addr, cmd, corr.Timeout())
		}
		return zero, err
	}
	reply, ok := resp.(C)
	if !ok {
		return zero, fmt.Errorf("%w: reply %s to %s", rfc2217.ErrInternal, resp, cmd)
	}
	if p.opts.Debug {
		log.Printf("[port] %s: %s -> %s", p.addr, cmd, reply)
	}
	return reply, nil
}

// SetBaudRate requests rate and returns the rate the server applied.
func (p *RemotePort) SetBaudRate(rate int) (int, error) {
	cmd, err := rfc2217.NewBaudRateCmd(rate)
	if err != nil {
		return 0, err
	}
	return p.sendBaudRate(cmd)
}

func (p *RemotePort) sendBaudRate(cmd *rfc2217.BaudRateCmd) (int, error) {
	reply, err := exchange[*rfc2217.BaudRateCmd](p, cmd)
	if err != nil {
		return 0, err
	}
	got := reply.BaudRate()
	p.update(func(s *Settings) { s.BaudRate = got })
	return got, nil
}

// SetDataBits requests bits and returns what the server applied.
func (p *RemotePort) SetDataBits(bits rfc2217.DataBits) (rfc2217.DataBits, error) {
	cmd, err := rfc2217.NewDataSizeCmd(bits)
	if err != nil {
		return 0, err
	}
	return p.sendDataSize(cmd)
}

func (p *RemotePort) sendDataSize(cmd *rfc2217.DataSizeCmd) (rfc2217.DataBits, error) {
	reply, err := exchange[*rfc2217.DataSizeCmd](p, cmd)
	if err != nil {
		return 0, err
	}
	got := reply.DataBits()
	p.update(func(s *Settings) { s.DataBits = got })
	return got, nil
}

// SetParity requests parity and returns what the server applied.
func (p *RemotePort) SetParity(parity rfc2217.Parity) (rfc2217.Parity, error) {
	cmd, err := rfc2217.NewParityCmd(parity)
	if err != nil {
		return 0, err
	}
	return p.sendParity(cmd)
}

func (p *RemotePort) sendParity(cmd *rfc2217.ParityCmd) (rfc2217.Parity, error) {
	reply, err := exchange[*rfc2217.ParityCmd](p, cmd)
	if err != nil {
		return 0, err
	}
	got, err := reply.Parity()
	if err != nil {
		return 0, err
	}
	p.update(func(s *Settings) { s.Parity = got })
	return got, nil
}

// SetStopBits requests stop bits and returns what the server applied.
func (p *RemotePort) SetStopBits(stop rfc2217.StopBits) (rfc2217.StopBits, error) {
	cmd, err := rfc2217.NewStopSizeCmd(stop)
	if err != nil {
		return 0, err
	}
	return p.sendStopSize(cmd)
}

func (p *RemotePort) sendStopSize(cmd *rfc2217.StopSizeCmd) (rfc2217.StopBits, error) {
	reply, err := exchange[*rfc2217.StopSizeCmd](p, cmd)
	if err != nil {
		return 0, err
	}
	got, err := reply.StopBits()
	if err != nil {
		return 0, err
	}
	p.update(func(s *Settings) { s.StopBits = got })
	return got, nil
}

// SetFlowControl requests flow control and returns what the server applied.
func (p *RemotePort) SetFlowControl(flow rfc2217.FlowControl) (rfc2217.FlowControl, error) {
	cmd, err := rfc2217.NewFlowControlCmd(flow)
	if err != nil {
		return 0, err
	}
	return p.sendFlowControl(cmd)
}

func (p *RemotePort) sendFlowControl(cmd *rfc2217.FlowControlCmd) (rfc2217.FlowControl, error) {
	reply, err := exchange[*rfc2217.FlowControlCmd](p, cmd)
	if err != nil {
		return 0, err
	}
	got := reply.FlowControl()
	p.update(func(s *Settings) { s.FlowControl = got })
	return got, nil
}

// Signature asks the server to identify itself.
func (p *RemotePort) Signature() (string, error) {
	reply, err := exchange[*rfc2217.SignatureCmd](p, rfc2217.NewSignatureCmd(""))
	if err != nil {
		return "", err
	}
	return reply.Text(), nil
}

// Purge flushes the server's receive and/or transmit buffer.
func (p *RemotePort) Purge(target rfc2217.PurgeTarget) (rfc2217.PurgeTarget, error) {
	cmd, err := rfc2217.NewPurgeDataCmd(target)
	if err != nil {
		return 0, err
	}
	reply, err := exchange[*rfc2217.PurgeDataCmd](p, cmd)
	if err != nil {
		return 0, err
	}
	return reply.Target(), nil
}

// Configure applies every field of s and returns the settings the server
// confirmed. It stops at the first failure.
func (p *RemotePort) Configure(s Settings) (Settings, error) {
	cmds, err := s.Commands()
	if err != nil {
		return p.Settings(), err
	}
	for _, cmd := range cmds {
		var err error
		switch c := cmd.(type) {
		case *rfc2217.BaudRateCmd:
			_, err = p.sendBaudRate(c)
		case *rfc2217.DataSizeCmd:
			_, err = p.sendDataSize(c)
		case *rfc2217.ParityCmd:
			_, err = p.sendParity(c)
		case *rfc2217.StopSizeCmd:
			_, err = p.sendStopSize(c)
		case *rfc2217.FlowControlCmd:
			_, err = p.sendFlowControl(c)
		}
		if err != nil {
			return p.Settings(), fmt.Errorf("%s: %w", cmd.Kind(), err)
		}
	}
	got := p.Settings()
	log.Printf("[port] %s: line configured: %s", p.addr, got)
	return got, nil
}

// QuerySettings asks the server for its current line settings.
func (p *RemotePort) QuerySettings() (Settings, error) {
	if _, err := p.sendBaudRate(rfc2217.BaudRateQuery()); err != nil {
		return p.Settings(), fmt.Errorf("baud rate: %w", err)
	}
	if _, err := p.sendDataSize(rfc2217.DataSizeQuery()); err != nil {
		return p.Settings(), fmt.Errorf("data bits: %w", err)
	}
	if _, err := p.sendParity(rfc2217.ParityQuery()); err != nil {
		return p.Settings(), fmt.Errorf("parity: %w", err)
	}
	if _, err := p.sendStopSize(rfc2217.StopSizeQuery()); err != nil {
		return p.Settings(), fmt.Errorf("stop bits: %w", err)
	}
	if _, err := p.sendFlowControl(rfc2217.FlowControlQuery()); err != nil {
		return p.Settings(), fmt.Errorf("flow control: %w", err)
	}
	return p.Settings(), nil
}
