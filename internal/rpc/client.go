package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/jurismap/internal/importer"
	"github.com/alucardeht/jurismap/internal/registry"
)

var ErrNotFound = errors.New("jurisdiction not found")

// Client talks to a running daemon.
type Client struct {
	conn *jsonrpc2.Conn
}

func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return NewClient(ctx, nc), nil
}

func NewClient(ctx context.Context, nc net.Conn) *Client {
	stream := jsonrpc2.NewBufferedStream(nc, jsonrpc2.VSCodeObjectCodec{})
	return &Client{conn: jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(noRequests))}
}

func noRequests(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (any, error) {
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "client accepts no requests"}
}

func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var res StatusResult
	if err := c.call(ctx, MethodStatus, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Maps(ctx context.Context) (*MapsResult, error) {
	var res MapsResult
	if err := c.call(ctx, MethodMaps, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Lookup(ctx context.Context, id, lang string) (*importer.Lookup, error) {
	var res importer.Lookup
	if err := c.call(ctx, MethodLookup, LookupParams{ID: id, Lang: lang}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Courts(ctx context.Context, id, lang string) (*CourtsResult, error) {
	var res CourtsResult
	if err := c.call(ctx, MethodCourts, LookupParams{ID: id, Lang: lang}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Reinit(ctx context.Context) (*importer.PopulateReport, error) {
	var res importer.PopulateReport
	if err := c.call(ctx, MethodReinit, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	err := c.conn.Call(ctx, method, params, result)
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case CodeNotLoaded:
			return registry.ErrNotLoaded
		case CodeNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, rpcErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", method, err)
}
