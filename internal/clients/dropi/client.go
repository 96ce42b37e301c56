package dropi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/utils"
)

const maxErrorBodyBytes = 1024

// Portal talks to the browser-automation sidecar that drives the supplier
// portal. Every call here ultimately occupies a real browser session on the
// sidecar, which is why callers must hold a semaphore slot first.
type Portal interface {
	// CountPendingOrders returns the size of the tenant's unreported backlog.
	CountPendingOrders(ctx context.Context, tenantID uuid.UUID) (int, error)
	// ReportRange marks orders [startIndex, endIndex] (1-based, inclusive) as
	// reported in the portal. Safe to repeat: already-reported orders inside
	// the range are skipped by the sidecar.
	ReportRange(ctx context.Context, tenantID uuid.UUID, startIndex, endIndex int) error
}

type portal struct {
	log     *logger.Logger
	baseURL string
	http    *http.Client
}

func NewPortal(baseLog *logger.Logger) (Portal, error) {
	url := strings.TrimRight(utils.GetEnv("DROPI_AGENT_URL", "http://localhost:8700", baseLog), "/")
	if url == "" {
		return nil, fmt.Errorf("dropi agent url required")
	}
	return &portal{
		log:     baseLog.With("service", "DropiPortal"),
		baseURL: url,
		http: &http.Client{
			// Range reporting drives a browser through pagination; slow is normal.
			Timeout: 5 * time.Minute,
		},
	}, nil
}

func (p *portal) CountPendingOrders(ctx context.Context, tenantID uuid.UUID) (int, error) {
	req := map[string]any{"tenant_id": tenantID.String()}
	var out struct {
		PendingOrders int `json:"pending_orders"`
	}
	if err := p.doJSON(ctx, http.MethodPost, "/api/orders/count", req, &out); err != nil {
		return 0, err
	}
	if out.PendingOrders < 0 {
		return 0, fmt.Errorf("dropi count: negative pending_orders=%d", out.PendingOrders)
	}
	return out.PendingOrders, nil
}

func (p *portal) ReportRange(ctx context.Context, tenantID uuid.UUID, startIndex, endIndex int) error {
	if startIndex < 1 || endIndex < startIndex {
		return fmt.Errorf("dropi report: invalid range [%d, %d]", startIndex, endIndex)
	}
	req := map[string]any{
		"tenant_id":   tenantID.String(),
		"start_index": startIndex,
		"end_index":   endIndex,
	}
	return p.doJSON(ctx, http.MethodPost, "/api/orders/report-range", req, nil)
}

func (p *portal) doJSON(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("dropi encode request: %w", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("dropi build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("dropi %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("dropi %s %s returned status=%d body=%s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dropi decode response: %w", err)
	}
	return nil
}
