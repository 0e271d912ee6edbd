package correlator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/waitcond"
)

// echoServer answers every request with the same payload under the
// response code, through the adapter, like a well-behaved access server.
type echoServer struct {
	mu      sync.Mutex
	sent    [][]int
	adapter *OptionAdapter
	delay   time.Duration
	silent  bool
	err     error
}

func (s *echoServer) SendSubnegotiation(data []int) error {
	s.mu.Lock()
	s.sent = append(s.sent, data)
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.silent {
		return nil
	}
	reply := append([]int(nil), data...)
	reply[1] += rfc2217.ServerResponseOffset
	go func() {
		time.Sleep(s.delay)
		s.adapter.HandleSubnegotiation(reply, len(reply))
	}()
	return nil
}

func newPair(timeout time.Duration) (*Correlator, *echoServer) {
	srv := &echoServer{delay: 10 * time.Millisecond}
	c := New(srv, timeout, false)
	srv.adapter = NewOptionAdapter(c, nil, false)
	return c, srv
}

func TestSendReceivesMatchingResponse(t *testing.T) {
	c, srv := newPair(time.Second)

	cmd, err := rfc2217.NewBaudRateCmd(9600)
	require.NoError(t, err)

	start := time.Now()
	resp, err := c.Send(cmd)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	baud, ok := resp.(*rfc2217.BaudRateCmd)
	require.True(t, ok, "response type %T", resp)
	assert.Equal(t, 9600, baud.BaudRate())
	assert.Equal(t, rfc2217.SetBaudrateS, baud.Code())

	require.Len(t, srv.sent, 1)
	assert.Equal(t, []int{44, 1, 0x00, 0x00, 0x25, 0x80}, srv.sent[0])
}

func TestSendNoResponse(t *testing.T) {
	c, srv := newPair(100 * time.Millisecond)
	srv.silent = true

	cmd, _ := rfc2217.NewDataSizeCmd(rfc2217.DataBits8)

	start := time.Now()
	resp, err := c.Send(cmd)
	elapsed := time.Since(start)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestDefaultTimeout(t *testing.T) {
	c := New(&echoServer{}, 0, false)
	assert.Equal(t, DefaultTimeout, c.Timeout())
	assert.Equal(t, time.Second, DefaultTimeout)
}

func TestSendIgnoresOtherKinds(t *testing.T) {
	c, srv := newPair(150 * time.Millisecond)
	srv.silent = true

	parity, _ := rfc2217.NewParityCmd(rfc2217.ParityEven)
	go func() {
		time.Sleep(20 * time.Millisecond)
		stop, _ := rfc2217.DecodeResponseBytes([]byte{44, 104, 1})
		c.OnResponseReceived(stop)
	}()

	_, err := c.Send(parity)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSendDiscardsStaleResponse(t *testing.T) {
	c, srv := newPair(100 * time.Millisecond)
	srv.silent = true

	stale, err := rfc2217.DecodeResponseBytes([]byte{44, 101, 0, 0, 0x09, 0x60})
	require.NoError(t, err)
	c.OnResponseReceived(stale)

	cmd, _ := rfc2217.NewBaudRateCmd(9600)
	_, err = c.Send(cmd)
	assert.ErrorIs(t, err, ErrNoResponse, "stale 2400 reply must not answer the new request")
}

func TestNewerResponseOverwritesUnconsumed(t *testing.T) {
	c, srv := newPair(time.Second)
	srv.silent = true

	go func() {
		time.Sleep(20 * time.Millisecond)
		first, _ := rfc2217.DecodeResponseBytes([]byte{44, 102, 7})
		second, _ := rfc2217.DecodeResponseBytes([]byte{44, 102, 8})
		c.cond.Update(func() {
			c.pending[first.Kind()] = first
			c.pending[second.Kind()] = second
		})
	}()

	cmd, _ := rfc2217.NewDataSizeCmd(rfc2217.DataBits8)
	resp, err := c.Send(cmd)
	require.NoError(t, err)
	assert.Equal(t, rfc2217.DataBits8, resp.(*rfc2217.DataSizeCmd).DataBits())
}

func TestSendTransportError(t *testing.T) {
	c, srv := newPair(time.Second)
	srv.err = errors.New("broken pipe")

	cmd, _ := rfc2217.NewBaudRateCmd(9600)
	_, err := c.Send(cmd)
	assert.ErrorIs(t, err, srv.err)
}

func TestSendNilCommand(t *testing.T) {
	c, _ := newPair(time.Second)
	_, err := c.Send(nil)
	assert.ErrorIs(t, err, rfc2217.ErrInvalidArgument)
}

func TestCloseFailsBlockedSend(t *testing.T) {
	c, srv := newPair(5 * time.Second)
	srv.silent = true

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Close()
	}()

	cmd, _ := rfc2217.NewBaudRateCmd(9600)
	start := time.Now()
	_, err := c.Send(cmd)
	assert.ErrorIs(t, err, waitcond.ErrClosed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSendContextCancel(t *testing.T) {
	c, srv := newPair(5 * time.Second)
	srv.silent = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.SendContext(ctx, rfc2217.BaudRateQuery())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentKinds(t *testing.T) {
	c, _ := newPair(time.Second)

	baud, _ := rfc2217.NewBaudRateCmd(19200)
	size, _ := rfc2217.NewDataSizeCmd(rfc2217.DataBits7)
	parity, _ := rfc2217.NewParityCmd(rfc2217.ParityOdd)
	cmds := []rfc2217.ControlCmd{baud, size, parity, rfc2217.NewSignatureCmd("")}

	var wg sync.WaitGroup
	for _, cmd := range cmds {
		wg.Add(1)
		go func(cmd rfc2217.ControlCmd) {
			defer wg.Done()
			resp, err := c.Send(cmd)
			if assert.NoError(t, err) {
				assert.Equal(t, cmd.Kind(), resp.Kind())
			}
		}(cmd)
	}
	wg.Wait()
}

func TestSameKindSerialized(t *testing.T) {
	c, _ := newPair(time.Second)

	var wg sync.WaitGroup
	for _, rate := range []int{1200, 2400, 4800} {
		wg.Add(1)
		go func(rate int) {
			defer wg.Done()
			cmd, _ := rfc2217.NewBaudRateCmd(rate)
			resp, err := c.Send(cmd)
			if assert.NoError(t, err) {
				assert.Equal(t, rate, resp.(*rfc2217.BaudRateCmd).BaudRate())
			}
		}(rate)
	}
	wg.Wait()
}

func TestSameKindWaiterDeadline(t *testing.T) {
	c, srv := newPair(5 * time.Second)
	srv.silent = true

	first := make(chan error, 1)
	go func() {
		_, err := c.Send(rfc2217.BaudRateQuery())
		first <- err
	}()
	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.sent) == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.SendContext(ctx, rfc2217.BaudRateQuery())
	assert.ErrorIs(t, err, ErrNoResponse)

	srv.mu.Lock()
	assert.Len(t, srv.sent, 1, "expired waiter must not send")
	srv.mu.Unlock()

	c.Close()
	assert.ErrorIs(t, <-first, waitcond.ErrClosed)
}

func TestRequestCodeIsNotAResponse(t *testing.T) {
	c, srv := newPair(50 * time.Millisecond)
	srv.silent = true

	go func() {
		time.Sleep(10 * time.Millisecond)
		// a request-coded command must not satisfy the pending send
		c.OnResponseReceived(rfc2217.BaudRateQuery())
	}()
	_, err := c.Send(rfc2217.BaudRateQuery())
	assert.ErrorIs(t, err, ErrNoResponse)
}
