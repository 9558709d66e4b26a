package middleware

import (
	"context"
	"io"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// maxDrain bounds how much of a 401 body is read before closing it.
const maxDrain = 4 << 10

// Authorizer is the part of *goSession.Manager the transport needs.
type Authorizer interface {
	Authorization() (goSession.Authorization, bool)
	HandleUnauthorized(ctx context.Context, auth goSession.Authorization, status int) error
	ObserveRequest(authenticated bool, d time.Duration)
}

// Transport is an http.RoundTripper that sends the active session's credentials. A 401
// response is closed and turned into a *goSession.UnauthorizedError; it is never retried.
type Transport struct {
	// Base performs the request. Nil means http.DefaultTransport.
	Base    http.RoundTripper
	Session Authorizer
}

// RoundTrip implements http.RoundTripper. The caller's request is never modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	auth, attached := t.Session.Authorization()
	if goSession.AuthSkipped(ctx) {
		auth, attached = goSession.Authorization{}, false
	}

	out := req
	if attached {
		out = req.Clone(ctx)
		auth.Apply(out.Header)
	}

	start := time.Now()
	resp, err := t.base().RoundTrip(out)
	t.Session.ObserveRequest(attached, time.Since(start))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()

	// The clear must finish even if the caller gives up on the request.
	return nil, t.Session.HandleUnauthorized(context.WithoutCancel(ctx), auth, resp.StatusCode)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewClient returns a copy of base whose transport sends session credentials. A nil base
// means a zero http.Client.
func NewClient(session Authorizer, base *http.Client) *http.Client {
	var c http.Client
	if base != nil {
		c = *base
	}
	c.Transport = &Transport{Base: c.Transport, Session: session}
	return &c
}
