package isu

import (
	"context"
	"time"
)

const report_session_close = "session.close"

// closeTimeout bounds the logout request made while closing, which cannot use
// the caller's context since it may already be done.
const closeTimeout = 10 * time.Second

// Close logs out if the client is authenticated and forgets every cookie.
// Calling it again does nothing, so a session is logged out at most once.
func (c *Client) Close(ctx context.Context) error {
	var err error
	if c.authenticated {
		err = c.Logout(ctx)
	}
	c.cookies.Clear()
	c.formToken = nil
	c.state = StateAnonymous
	return err
}

// WithSession runs fn with a fresh client and closes the client when fn is
// done, whether it returns, fails, panics or its context is canceled. A failing
// logout is reported but does not change the returned error.
func WithSession(ctx context.Context, opts Options, fn func(ctx context.Context, client *Client) error) error {
	client, err := NewClient(opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		closeErr := client.Close(closeCtx)
		if closeErr != nil {
			client.tel.ReportWarning(report_session_close, closeErr)
		}
	}()
	return fn(ctx, client)
}
