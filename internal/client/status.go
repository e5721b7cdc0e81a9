package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// Status implements taxii2.Status. A Status is always loaded: it is built
// either from a known payload or by fetching its URL.
type Status struct {
	endpoint

	mu   sync.Mutex
	info *taxii2.StatusInfo
	raw  json.RawMessage
}

// NewStatus fetches the status resource at rawURL.
func NewStatus(ctx context.Context, rawURL string, config *taxii2.Config) (*Status, error) {
	ep, err := newEndpoint(rawURL, config)
	if err != nil {
		return nil, err
	}

	status := &Status{endpoint: ep}
	if err := status.Refresh(ctx); err != nil {
		return nil, err
	}

	return status, nil
}

// NewStatusFromInfo creates a status from a known status payload.
func NewStatusFromInfo(rawURL string, info json.RawMessage, config *taxii2.Config) (*Status, error) {
	ep, err := newEndpoint(rawURL, config)
	if err != nil {
		return nil, err
	}

	return newStatusFromInfo(ep, info)
}

func newStatusFromInfo(ep endpoint, info json.RawMessage) (*Status, error) {
	status := &Status{endpoint: ep}
	if err := status.populate(info); err != nil {
		return nil, err
	}

	return status, nil
}

// Info implements taxii2.Status.
func (s *Status) Info() *taxii2.StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.info
}

// Complete implements taxii2.Status.
func (s *Status) Complete() bool {
	return s.Info().Complete()
}

// Raw implements taxii2.Status.
func (s *Status) Raw() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.raw
}

// Refresh implements taxii2.Status.
func (s *Status) Refresh(ctx context.Context) error {
	resp, err := s.conn.Get(ctx, s.url, accept(s.version.AcceptMediaType(), nil))
	if err != nil {
		return fmt.Errorf("getting status: %w", err)
	}

	raw, err := resp.JSON()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.populate(raw)
}

// WaitUntilFinal implements taxii2.Status. It returns nil when the timeout
// expires; callers check Complete to tell the two outcomes apart.
func (s *Status) WaitUntilFinal(ctx context.Context, pollInterval, timeout time.Duration) error {
	startTime := time.Now()

	timer := time.NewTimer(pollInterval)
	defer timer.Stop()

	for !s.Complete() && (timeout <= 0 || time.Since(startTime) < timeout) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for status %s: %w", s.url, ctx.Err())
		case <-timer.C:
		}

		if err := s.Refresh(ctx); err != nil {
			return err
		}

		info := s.Info()
		s.logger.Debug("Polled status", map[string]interface{}{
			"url":     s.url,
			"status":  info.Status,
			"pending": info.PendingCount,
			"elapsed": time.Since(startTime).String(),
		})

		timer.Reset(pollInterval)
	}

	return nil
}

func (s *Status) populate(raw json.RawMessage) error {
	doc, err := decodeDocument(raw, s.url)
	if err != nil {
		return err
	}

	var info taxii2.StatusInfo
	if err := decodeInto(raw, &info, s.url); err != nil {
		return err
	}

	if err := validateStatus(&info, doc, s.url); err != nil {
		return err
	}

	s.info = &info
	s.raw = raw

	return nil
}

func validateStatus(info *taxii2.StatusInfo, doc document, requestURL string) error {
	switch {
	case info.ID == "":
		return missingField("id", "Status", requestURL)
	case info.Status == "":
		return missingField("status", "Status", requestURL)
	}

	for _, field := range []string{"total_count", "success_count", "failure_count", "pending_count"} {
		if !doc.has(field) {
			return missingField(field, "Status", requestURL)
		}
	}

	outcomes := []struct {
		name      string
		countName string
		details   []taxii2.StatusDetail
		count     int64
	}{
		{"successes", "success_count", info.Successes, info.SuccessCount},
		{"pendings", "pending_count", info.Pendings, info.PendingCount},
		{"failures", "failure_count", info.Failures, info.FailureCount},
	}

	for _, outcome := range outcomes {
		if int64(len(outcome.details)) != outcome.count {
			return taxii2.NewError(taxii2.ErrValidation, "Found %s=%s, but %s=%d in status '%s'",
				outcome.name, detailIDs(outcome.details), outcome.countName, outcome.count, info.ID)
		}
	}

	if info.SuccessCount+info.PendingCount+info.FailureCount != info.TotalCount {
		return taxii2.NewError(taxii2.ErrValidation,
			"(success_count=%d + pending_count=%d + failure_count=%d) != total_count=%d in status '%s'",
			info.SuccessCount, info.PendingCount, info.FailureCount, info.TotalCount, info.ID)
	}

	return nil
}

func detailIDs(details []taxii2.StatusDetail) string {
	ids := make([]string, 0, len(details))
	for _, detail := range details {
		ids = append(ids, "'"+detail.ID+"'")
	}

	return "[" + strings.Join(ids, ", ") + "]"
}
