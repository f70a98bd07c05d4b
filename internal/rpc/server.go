package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/jurismap/internal/importer"
	"github.com/alucardeht/jurismap/internal/logger"
	"github.com/alucardeht/jurismap/internal/registry"
)

var log = logger.ForComponent("rpc")

var errUnknownMethod = errors.New("unknown method")

// Server answers JSON-RPC requests about the jurisdiction store.
type Server struct {
	svc       *importer.Service
	startTime time.Time

	mu    sync.Mutex
	conns map[*jsonrpc2.Conn]struct{}
}

func NewServer(svc *importer.Service) *Server {
	return &Server{
		svc:       svc,
		startTime: time.Now(),
		conns:     make(map[*jsonrpc2.Conn]struct{}),
	}
}

// Serve accepts connections until the listener is closed or ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.ServeConn(ctx, nc)
	}
}

// ServeConn starts handling one connection and returns immediately.
func (s *Server) ServeConn(ctx context.Context, nc net.Conn) *jsonrpc2.Conn {
	stream := jsonrpc2.NewBufferedStream(nc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(s.handle)))

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-conn.DisconnectNotify()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	return conn
}

// Close drops every open connection.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	log.Debug("request", "method", req.Method)

	result, err := s.dispatch(ctx, req)
	if err != nil {
		log.Debug("request failed", "method", req.Method, "error", err)
		return nil, toRPCError(err)
	}
	return result, nil
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case MethodStatus:
		return s.status(ctx)
	case MethodMaps:
		return s.maps()
	case MethodLookup:
		var p LookupParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return s.lookup(ctx, p)
	case MethodCourts:
		var p LookupParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		l, err := s.lookup(ctx, p)
		if err != nil {
			return nil, err
		}
		return &CourtsResult{Courts: l.Courts}, nil
	case MethodReinit:
		return s.svc.Reinit(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownMethod, req.Method)
	}
}

func (s *Server) status(ctx context.Context) (*StatusResult, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return nil, err
	}
	versions, err := s.svc.Versions(ctx)
	if err != nil {
		return nil, err
	}

	res := &StatusResult{
		Initialized: s.svc.Initialized(),
		State:       latchStateName(s.svc.LatchState()),
		Uptime:      time.Since(s.startTime),
		Stats:       stats,
		Versions:    versions,
		LastReport:  s.svc.LastReport(),
	}
	if res.Initialized {
		res.Maps = s.svc.Registry().Count()
	}
	return res, nil
}

func (s *Server) maps() (*MapsResult, error) {
	maps, err := s.svc.Maps()
	if err != nil {
		return nil, err
	}
	return &MapsResult{Maps: maps, Duplicates: s.svc.Registry().Duplicates()}, nil
}

func (s *Server) lookup(ctx context.Context, p LookupParams) (*importer.Lookup, error) {
	if p.ID == "" {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "id is required"}
	}
	l, err := s.svc.Lookup(ctx, p.ID, p.Lang)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, &jsonrpc2.Error{Code: CodeNotFound, Message: fmt.Sprintf("jurisdiction %q not found", p.ID)}
	}
	return l, nil
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func toRPCError(err error) error {
	var rpcErr *jsonrpc2.Error
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, registry.ErrNotLoaded):
		return &jsonrpc2.Error{Code: CodeNotLoaded, Message: err.Error()}
	case errors.Is(err, errUnknownMethod):
		return &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: err.Error()}
	default:
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
}

func latchStateName(s importer.LatchState) string {
	switch s {
	case importer.LatchIdle:
		return "idle"
	case importer.LatchRunning:
		return "initializing"
	case importer.LatchDone:
		return "ready"
	default:
		return "unknown"
	}
}
