package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// Server implements taxii2.Server.
type Server struct {
	endpoint

	mu          sync.Mutex
	state       loadState
	info        *taxii2.ServerInfo
	raw         json.RawMessage
	apiRoots    []taxii2.APIRoot
	defaultRoot taxii2.APIRoot
}

// NewServer creates a discovery endpoint. Nothing is fetched until first use.
func NewServer(rawURL string, config *taxii2.Config) (*Server, error) {
	ep, err := newEndpoint(rawURL, config)
	if err != nil {
		return nil, err
	}

	return &Server{endpoint: ep}, nil
}

// Info implements taxii2.Server.
func (s *Server) Info(ctx context.Context) (*taxii2.ServerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	return s.info, nil
}

// APIRoots implements taxii2.Server.
func (s *Server) APIRoots(ctx context.Context) ([]taxii2.APIRoot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	return s.apiRoots, nil
}

// Default implements taxii2.Server. The returned value is the same
// instance found in APIRoots.
func (s *Server) Default(ctx context.Context) (taxii2.APIRoot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	return s.defaultRoot, nil
}

// Refresh implements taxii2.Server.
func (s *Server) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refresh(ctx)
}

// Raw implements taxii2.Server.
func (s *Server) Raw() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.raw
}

func (s *Server) ensureLoaded(ctx context.Context) error {
	if s.state == loaded {
		return nil
	}

	return s.refresh(ctx)
}

func (s *Server) refresh(ctx context.Context) error {
	resp, err := s.conn.Get(ctx, s.url, accept(s.version.AcceptMediaType(), nil))
	if err != nil {
		return fmt.Errorf("getting server discovery: %w", err)
	}

	raw, err := resp.JSON()
	if err != nil {
		return err
	}

	var info taxii2.ServerInfo
	if err := decodeInto(raw, &info, s.url); err != nil {
		return err
	}

	if info.Title == "" {
		return taxii2.NewError(taxii2.ErrValidation, "No 'title' in Server Discovery for request '%s'", s.url)
	}

	apiRoots := make([]taxii2.APIRoot, 0, len(info.APIRoots))
	byURL := make(map[string]taxii2.APIRoot, len(info.APIRoots))

	for _, rootURL := range info.APIRoots {
		resolved, err := resolveURL(s.url, rootURL)
		if err != nil {
			return err
		}

		root := newAPIRoot(s.child(resolved))
		apiRoots = append(apiRoots, root)
		byURL[rootURL] = root
	}

	s.info = &info
	s.raw = raw
	s.apiRoots = apiRoots
	s.defaultRoot = byURL[info.Default]
	s.state = loaded

	return nil
}
