package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ssebasarias/droptools/internal/logger"
)

const maxErrorBodyBytes = 1024

type Vector struct {
	ID      string
	Values  []float32
	Concept string
}

type VectorMatch struct {
	ID    string
	Score float64
}

// VectorIndex holds the embeddings of already-clustered products so new items
// can be matched against them by nearest-neighbor search, filtered to one
// taxonomy concept.
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []Vector) error
	// QueryMatches returns IDs with similarity scores (higher is better),
	// restricted to points sharing the given concept.
	QueryMatches(ctx context.Context, q []float32, topK int, concept string) ([]VectorMatch, error)
	DeleteIDs(ctx context.Context, ids []string) error
}

type vectorIndex struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewVectorIndex(log *logger.Logger, cfg Config) (VectorIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &vectorIndex{
		log:     log.With("service", "QdrantVectorIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	if err := s.verifyReady(context.Background()); err != nil {
		return nil, err
	}

	log.Info("Qdrant vector index ready",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func (s *vectorIndex) Upsert(ctx context.Context, vectors []Vector) error {
	if s == nil || len(vectors) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(vectors))
	for _, v := range vectors {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return fmt.Errorf("qdrant upsert: vector id is required")
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("qdrant upsert: vector %q has empty values", id)
		}
		if s.cfg.VectorDim > 0 && len(v.Values) != s.cfg.VectorDim {
			return fmt.Errorf("qdrant upsert: vector %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(v.Values))
		}
		points = append(points, map[string]any{
			"id":     id,
			"vector": v.Values,
			"payload": map[string]any{
				"concept": v.Concept,
			},
		})
	}
	req := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

func (s *vectorIndex) QueryMatches(ctx context.Context, q []float32, topK int, concept string) ([]VectorMatch, error) {
	if s == nil {
		return nil, fmt.Errorf("vector index unavailable")
	}
	if len(q) == 0 {
		return nil, fmt.Errorf("qdrant query: query vector required")
	}
	if s.cfg.VectorDim > 0 && len(q) != s.cfg.VectorDim {
		return nil, fmt.Errorf("qdrant query: vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q))
	}
	if topK <= 0 {
		topK = 5
	}

	req := map[string]any{
		"vector":       q,
		"limit":        topK,
		"with_payload": false,
		"with_vector":  false,
	}
	if strings.TrimSpace(concept) != "" {
		req["filter"] = map[string]any{
			"must": []any{
				map[string]any{
					"key":   "concept",
					"match": map[string]any{"value": concept},
				},
			},
		}
	}

	var rawResults []qdrantSearchResultItem
	if err := s.doJSON(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &rawResults); err != nil {
		return nil, err
	}

	out := make([]VectorMatch, 0, len(rawResults))
	for _, item := range rawResults {
		id := decodePointID(item.ID)
		if id == "" {
			continue
		}
		out = append(out, VectorMatch{ID: id, Score: item.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (s *vectorIndex) DeleteIDs(ctx context.Context, ids []string) error {
	if s == nil || len(ids) == 0 {
		return nil
	}
	pointIDs := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		pointIDs = append(pointIDs, id)
	}
	if len(pointIDs) == 0 {
		return nil
	}
	req := map[string]any{"points": pointIDs}
	return s.doJSON(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, nil)
}

func (s *vectorIndex) verifyReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	readyReq, err := http.NewRequestWithContext(readyCtx, http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return fmt.Errorf("qdrant ready request: %w", err)
	}
	readyResp, err := s.http.Do(readyReq)
	if err != nil {
		return fmt.Errorf("qdrant ready check: %w", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return fmt.Errorf("qdrant ready check returned status=%d", readyResp.StatusCode)
	}

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return err
	}
	size := result.Config.Params.Vectors.Size
	if size != 0 && s.cfg.VectorDim != 0 && size != s.cfg.VectorDim {
		return fmt.Errorf("qdrant collection %q vector size mismatch: expected=%d actual=%d", s.cfg.Collection, s.cfg.VectorDim, size)
	}
	return nil
}

func (s *vectorIndex) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func (s *vectorIndex) doJSON(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("qdrant encode request: %w", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("qdrant build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("qdrant %s %s returned status=%d body=%s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	var envelope qdrantEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("qdrant decode response: %w", err)
	}
	if len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("qdrant decode result: %w", err)
	}
	return nil
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
