package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"time"

	"skywatch-sim/internal/logging"
	"skywatch-sim/internal/simerr"
)

// ClientVersion is the protocol version this client implements.
const ClientVersion = 1

var (
	// ErrRPCTimeout is returned when a call outlives Config.Timeout.
	ErrRPCTimeout = errors.New("RPC call timed out")
	// ErrConnectTimeout is returned when dialing outlives Config.Timeout.
	ErrConnectTimeout = errors.New("connect timed out")
	// ErrIncompatibleVersion is returned when client and server versions do not overlap.
	ErrIncompatibleVersion = errors.New("incompatible simulator version")
)

// Config controls the RPC client.
type Config struct {
	Address          string
	Timeout          time.Duration
	MaxAttempts      int
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
	MinServerVersion int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff < c.BaseBackoff {
		c.MaxBackoff = 10 * c.BaseBackoff
	}
	if c.MinServerVersion <= 0 {
		c.MinServerVersion = 1
	}
	return c
}

// Backoff returns the wait before retry number attempt (1-based):
// base doubled per attempt and capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}

// Client is a Gateway talking msgpack-rpc to the external simulator. It
// reconnects transparently after transport failures.
type Client struct {
	cfg  Config
	dial func(ctx context.Context, addr string) (net.Conn, error)

	mu  sync.Mutex
	rpc *rpc.Client
}

var _ Gateway = (*Client)(nil)

// Dial connects to the simulator, retrying with backoff.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	d := net.Dialer{Timeout: cfg.Timeout}
	c := &Client{
		cfg: cfg,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		},
	}
	if err := c.withRetry(ctx, "connect", func(*rpc.Client) error { return nil }); err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials and runs the version handshake. The dial is bounded by
// Config.Timeout like every call.
func (c *Client) connect(ctx context.Context) (*rpc.Client, error) {
	conn, err := c.dialWithTimeout(ctx)
	if err != nil {
		return nil, err
	}
	codec := &loggingClientCodec{ClientCodec: NewClientCodec(conn), lg: logging.FromContext(ctx)}
	cl := rpc.NewClientWithCodec(codec)

	var pong bool
	if err := c.callWithTimeout(ctx, cl, "ping", nil, &pong); err != nil {
		cl.Close()
		return nil, err
	}
	var serverVersion, minClient int
	if err := c.callWithTimeout(ctx, cl, "getServerVersion", nil, &serverVersion); err != nil {
		cl.Close()
		return nil, err
	}
	if err := c.callWithTimeout(ctx, cl, "getMinRequiredClientVersion", nil, &minClient); err != nil {
		cl.Close()
		return nil, err
	}
	if serverVersion < c.cfg.MinServerVersion || ClientVersion < minClient {
		cl.Close()
		return nil, fmt.Errorf("server v%d needs client >= v%d, client v%d needs server >= v%d: %w",
			serverVersion, minClient, ClientVersion, c.cfg.MinServerVersion, ErrIncompatibleVersion)
	}
	logging.FromContext(ctx).Info("connected to simulator", "address", c.cfg.Address, "server_version", serverVersion)
	return cl, nil
}

func (c *Client) dialWithTimeout(ctx context.Context) (net.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	conn, err := c.dial(dctx, c.cfg.Address)
	if err == nil {
		return conn, nil
	}
	// our own deadline is a retryable transport failure, the caller's is not
	if ctx.Err() == nil && errors.Is(dctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.Address, ErrConnectTimeout)
	}
	return nil, err
}

func (c *Client) callWithTimeout(ctx context.Context, cl *rpc.Client, method string, params []any, reply any) error {
	call := cl.Go(method, params, reply, make(chan *rpc.Call, 1))
	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()
	select {
	case <-call.Done:
		return call.Error
	case <-timer.C:
		return fmt.Errorf("%s: %w", method, ErrRPCTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// current returns the live connection, dialing when there is none.
func (c *Client) current(ctx context.Context) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc != nil {
		return c.rpc, nil
	}
	cl, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.rpc = cl
	return cl, nil
}

func (c *Client) drop(cl *rpc.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc == cl {
		c.rpc.Close()
		c.rpc = nil
	}
}

// retryable reports whether err is a transport failure worth reconnecting for.
func retryable(err error) bool {
	var serverErr rpc.ServerError
	switch {
	case errors.As(err, &serverErr):
		return false
	case errors.Is(err, ErrIncompatibleVersion):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (c *Client) withRetry(ctx context.Context, op string, fn func(*rpc.Client) error) error {
	lg := logging.FromContext(ctx)
	var err error
	for attempt := 1; ; attempt++ {
		var cl *rpc.Client
		if cl, err = c.current(ctx); err == nil {
			if err = fn(cl); err == nil {
				return nil
			}
			if retryable(err) {
				c.drop(cl)
			}
		}
		if !retryable(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if attempt >= c.cfg.MaxAttempts {
			return simerr.TransientIO(op, err)
		}
		wait := Backoff(attempt, c.cfg.BaseBackoff, c.cfg.MaxBackoff)
		lg.Warn("simulator call failed, retrying", "op", op, "attempt", attempt, "backoff", wait, "err", err)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// call decodes into a fresh reply per attempt so an abandoned call never
// writes into a value that has been returned.
func call[T any](ctx context.Context, c *Client, method string, params ...any) (T, error) {
	var out T
	err := c.withRetry(ctx, method, func(cl *rpc.Client) error {
		var reply T
		if err := c.callWithTimeout(ctx, cl, method, params, &reply); err != nil {
			return err
		}
		out = reply
		return nil
	})
	return out, err
}

// Kinematics implements Gateway.
func (c *Client) Kinematics(ctx context.Context, vehicle string) (KinematicsState, error) {
	return call[KinematicsState](ctx, c, "simGetGroundTruthKinematics", vehicle)
}

// DistanceSensor implements Gateway.
func (c *Client) DistanceSensor(ctx context.Context, sensor, vehicle string) (DistanceSensorData, error) {
	return call[DistanceSensorData](ctx, c, "getDistanceSensorData", sensor, vehicle)
}

// IMU implements Gateway.
func (c *Client) IMU(ctx context.Context, sensor, vehicle string) (ImuData, error) {
	return call[ImuData](ctx, c, "getImuData", sensor, vehicle)
}

// Lidar implements Gateway.
func (c *Client) Lidar(ctx context.Context, sensor, vehicle string) (LidarData, error) {
	return call[LidarData](ctx, c, "getLidarData", sensor, vehicle)
}

// Close drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc == nil {
		return nil
	}
	err := c.rpc.Close()
	c.rpc = nil
	return err
}
