package bridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DialOptions locate the host's socket.io endpoint.
type DialOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
	CallTimeout        time.Duration
}

// Dial connects to the host and returns a Remote builder plus a function
// closing the connection.
func Dial(ctx context.Context, o DialOptions) (*Remote, func(), error) {
	logger := ctxlog.FromContext(ctx).With("bridge", "socketio", "url", o.URL)
	logger.Info("Connecting to scene host...")

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	connectTimeout := o.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to scene host", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		closer := func() {
			logger.Info("Disconnecting from scene host", "sid", io.Id())
			io.Disconnect()
		}
		return NewRemote(io, o.CallTimeout), closer, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, nil, fmt.Errorf("waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, nil, fmt.Errorf("timed out after %v waiting for socket.io connection", connectTimeout)
	}
}
