// Package odoo talks to an Odoo instance over XML-RPC: it reads system
// parameters and exports commission purchase orders.
package odoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds connection settings for the Odoo client
type Config struct {
	URL         string
	Database    string
	Username    string
	Password    string
	Timeout     time.Duration
	AuthTimeout time.Duration
	// RateLimit is the number of calls per second; zero disables throttling
	RateLimit float64
	RateBurst int
	// ProductID is the service product used on commission order lines
	ProductID  int64
	CurrencyID int64
}

// Client is a session-caching XML-RPC client. It is safe for concurrent use.
type Client struct {
	cfg       Config
	transport http.RoundTripper
	limiter   *rate.Limiter
	logger    *zap.Logger

	mu       sync.Mutex
	uid      int64
	object   *xmlrpc.Client
	lastAuth time.Time
}

// Option configures the client
type Option func(*Client)

// WithTransport overrides the HTTP transport used for XML-RPC calls
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// NewClient validates cfg and creates a client; no connection is made yet
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Odoo URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid Odoo URL scheme %q, must be http or https", u.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 6 * time.Hour
	}

	c := &Client{
		cfg:       cfg,
		transport: http.DefaultTransport,
		logger:    logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) endpoint(service string) string {
	return fmt.Sprintf("%s/xmlrpc/2/%s", c.cfg.URL, service)
}

// authenticate must be called with c.mu held
func (c *Client) authenticate(ctx context.Context) error {
	common, err := xmlrpc.NewClient(c.endpoint("common"), c.transport)
	if err != nil {
		return fmt.Errorf("failed to connect to Odoo common endpoint: %w", err)
	}
	defer common.Close()

	var uid int64
	args := []interface{}{c.cfg.Database, c.cfg.Username, c.cfg.Password, map[string]interface{}{}}
	if err := c.call(ctx, common, "authenticate", args, &uid); err != nil {
		c.logger.Error("Odoo authentication failed", zap.String("db", c.cfg.Database), zap.String("username", c.cfg.Username), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	if uid == 0 {
		return ErrAuthenticationFailed
	}

	object, err := xmlrpc.NewClient(c.endpoint("object"), c.transport)
	if err != nil {
		return fmt.Errorf("failed to connect to Odoo object endpoint: %w", err)
	}

	c.uid, c.object, c.lastAuth = uid, object, time.Now()
	c.logger.Info("Authenticated with Odoo", zap.Int64("uid", uid), zap.String("db", c.cfg.Database))
	return nil
}

func (c *Client) session(ctx context.Context) (int64, *xmlrpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.uid != 0 && c.object != nil && time.Since(c.lastAuth) < c.cfg.AuthTimeout {
		return c.uid, c.object, nil
	}
	if c.object != nil {
		c.object.Close()
		c.object = nil
	}
	if err := c.authenticate(ctx); err != nil {
		return 0, nil, err
	}
	return c.uid, c.object, nil
}

// call runs one blocking RPC under the rate limit and the call timeout.
// kolo/xmlrpc has no context support, so the call runs in a goroutine.
func (c *Client) call(ctx context.Context, rpc *xmlrpc.Client, method string, args interface{}, reply interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- rpc.Call(method, args, reply)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return parseFault(err)
	}
}

// ExecuteKw calls model.method through execute_kw
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, reply interface{}) error {
	uid, object, err := c.session(ctx)
	if err != nil {
		return err
	}
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}

	params := []interface{}{c.cfg.Database, uid, c.cfg.Password, model, method, args, kwargs}
	if err := c.call(ctx, object, "execute_kw", params, reply); err != nil {
		c.logger.Error("Odoo call failed", zap.String("model", model), zap.String("method", method), zap.Error(err))
		return fmt.Errorf("%s.%s: %w", model, method, err)
	}
	return nil
}

// Close releases the cached session
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.object != nil {
		c.object.Close()
		c.object = nil
	}
	c.uid = 0
	return nil
}
