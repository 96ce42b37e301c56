package clustering

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/ssebasarias/droptools/internal/clients/qdrant"
	"github.com/ssebasarias/droptools/internal/logger"
	"github.com/ssebasarias/droptools/internal/repos"
	"github.com/ssebasarias/droptools/internal/types"
)

type EngineConfig struct {
	BatchSize        int
	TopK             int
	IdleInterval     time.Duration
	QueryConcurrency int
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = 30 * time.Second
	}
	if c.QueryConcurrency <= 0 {
		c.QueryConcurrency = 8
	}
	return c
}

// Engine assigns unclustered products to clusters, one bounded batch per
// cycle. Candidate search goes through the vector index (already-clustered
// products only, same concept), scoring and the join/seed commit happen here.
type Engine struct {
	log       *logger.Logger
	products  repos.ProductRepo
	clusters  repos.ClusterRepo
	decisions repos.DecisionLogRepo
	weights   *WeightStore
	index     qdrant.VectorIndex
	cfg       EngineConfig
}

func NewEngine(
	baseLog *logger.Logger,
	products repos.ProductRepo,
	clusters repos.ClusterRepo,
	decisions repos.DecisionLogRepo,
	weights *WeightStore,
	index qdrant.VectorIndex,
	cfg EngineConfig,
) *Engine {
	return &Engine{
		log:       baseLog.With("component", "ClusteringEngine"),
		products:  products,
		clusters:  clusters,
		decisions: decisions,
		weights:   weights,
		index:     index,
		cfg:       cfg.withDefaults(),
	}
}

// StartWorker runs the batch loop until ctx is canceled. The idle interval
// between cycles is the backpressure valve keeping clustering off the
// database's critical path under load.
func (e *Engine) StartWorker(ctx context.Context) {
	e.log.Info("Starting clustering worker", "batch_size", e.cfg.BatchSize, "top_k", e.cfg.TopK, "idle_interval", e.cfg.IdleInterval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				e.log.Info("Clustering worker stopped")
				return
			default:
			}
			n, err := e.ProcessBatch(ctx)
			if err != nil {
				e.log.Warn("Clustering batch failed", "error", err)
			}
			wait := e.cfg.IdleInterval
			if n >= e.cfg.BatchSize {
				// Full batch means there is likely more backlog; keep the
				// pause short but never spin.
				wait = time.Second
			}
			select {
			case <-ctx.Done():
				e.log.Info("Clustering worker stopped")
				return
			case <-time.After(wait):
			}
		}
	}()
}

// ProcessBatch clusters up to BatchSize pending products and returns how many
// were decided. One product failing never aborts the rest of the batch.
func (e *Engine) ProcessBatch(ctx context.Context) (int, error) {
	items, err := e.products.GetUnclustered(ctx, nil, e.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("load unclustered products: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}
	e.weights.ResetCycle()

	embeddings := make([][]float32, len(items))
	neighbors := make([][]qdrant.VectorMatch, len(items))
	queryFailed := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.QueryConcurrency)
	for i := range items {
		item := items[i]
		emb := decodeEmbedding(item.Embedding)
		if len(emb) == 0 || item.Concept == "" {
			continue // not ready; skipped, not processed
		}
		embeddings[i] = emb
		idx := i
		g.Go(func() error {
			// Ask for one extra in case the index still contains this item.
			matches, qErr := e.index.QueryMatches(gctx, emb, e.cfg.TopK+1, item.Concept)
			if qErr != nil {
				// Leave the item unclustered: an empty candidate set would
				// seed a duplicate cluster, a skipped item is retried next
				// batch.
				e.log.Warn("Candidate search failed, deferring product", "product_id", item.ID, "error", qErr)
				queryFailed[idx] = true
				return nil
			}
			neighbors[idx] = matches
			return nil
		})
	}
	_ = g.Wait()

	processed := 0
	for i, item := range items {
		if embeddings[i] == nil || queryFailed[i] {
			continue
		}
		if err := e.processItem(ctx, item, embeddings[i], neighbors[i]); err != nil {
			e.log.Error("Clustering failed for product", "product_id", item.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

type scoredCandidate struct {
	product     *types.Product
	clusterID   uuid.UUID
	visualScore float64
	textScore   float64
	finalScore  float64
	method      MatchMethod
	accepted    bool
}

func (e *Engine) processItem(ctx context.Context, item *types.Product, emb []float32, matches []qdrant.VectorMatch) error {
	profile := e.weights.Resolve(ctx, item.Concept)
	candidates, err := e.loadCandidates(ctx, item, matches)
	if err != nil {
		return err
	}

	var winner *scoredCandidate
	logEntries := make([]*types.MatchDecisionLog, 0, len(candidates))
	for _, cand := range candidates {
		candEmb := decodeEmbedding(cand.product.Embedding)
		if len(candEmb) == 0 {
			continue
		}
		sc := &scoredCandidate{
			product:     cand.product,
			clusterID:   cand.clusterID,
			visualScore: VisualScore(emb, candEmb),
			textScore:   TextScore(item.Title, cand.product.Title),
		}
		sc.method, sc.finalScore, sc.accepted = evaluatePair(profile, sc.visualScore, sc.textScore)
		if sc.accepted && (winner == nil || sc.finalScore > winner.finalScore) {
			winner = sc
		}
		if sc.accepted || sc.finalScore > minLogScore {
			logEntries = append(logEntries, e.buildLogEntry(item, sc, profile))
		}
	}
	if winner != nil && winner.finalScore < auditThreshold {
		winner.method = MethodNeedsAudit
		for _, entry := range logEntries {
			if entry.CandidateID == winner.product.ID {
				entry.MatchMethod = string(MethodNeedsAudit)
			}
		}
	}

	if winner != nil {
		if err := e.clusters.AddMember(ctx, nil, winner.clusterID, item, string(winner.method), winner.finalScore); err != nil {
			return fmt.Errorf("join cluster %s: %w", winner.clusterID, err)
		}
	} else {
		cluster, err := e.clusters.Create(ctx, nil, &types.ProductCluster{
			RepresentativeID: item.ID,
			Concept:          item.Concept,
			TotalCompetitors: 0,
		})
		if err != nil {
			return fmt.Errorf("seed cluster: %w", err)
		}
		if err := e.clusters.AddMember(ctx, nil, cluster.ID, item, string(MethodRepresentative), 1.0); err != nil {
			return fmt.Errorf("seed membership: %w", err)
		}
	}

	if err := e.products.MarkClustered(ctx, nil, item.ID); err != nil {
		return fmt.Errorf("mark clustered: %w", err)
	}

	// From here on everything is best-effort: the clustering decision is
	// already committed.
	if err := e.index.Upsert(ctx, []qdrant.Vector{{
		ID:      item.ID.String(),
		Values:  emb,
		Concept: item.Concept,
	}}); err != nil {
		e.log.Warn("Vector index upsert failed, product will not be a candidate until re-indexed", "product_id", item.ID, "error", err)
	}
	if len(logEntries) > 0 {
		if err := e.decisions.Create(ctx, nil, logEntries); err != nil {
			e.log.Warn("Decision log write failed", "product_id", item.ID, "error", err)
		}
	}
	return nil
}

type clusterCandidate struct {
	product   *types.Product
	clusterID uuid.UUID
}

// loadCandidates resolves vector matches to clustered products of the same
// concept with their cluster IDs, capped at TopK nearest.
func (e *Engine) loadCandidates(ctx context.Context, item *types.Product, matches []qdrant.VectorMatch) ([]clusterCandidate, error) {
	ids := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		id, err := uuid.Parse(m.ID)
		if err != nil || id == item.ID {
			continue
		}
		ids = append(ids, id)
		if len(ids) >= e.cfg.TopK {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	products, err := e.products.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("load candidate products: %w", err)
	}
	memberships, err := e.clusters.GetMembershipsByProducts(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("load candidate memberships: %w", err)
	}
	clusterByProduct := make(map[uuid.UUID]uuid.UUID, len(memberships))
	for _, m := range memberships {
		clusterByProduct[m.ProductID] = m.ClusterID
	}

	byID := make(map[uuid.UUID]*types.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Preserve nearest-first order from the index.
	out := make([]clusterCandidate, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.Clustered || p.Concept != item.Concept {
			continue
		}
		clusterID, ok := clusterByProduct[id]
		if !ok || clusterID == uuid.Nil {
			continue
		}
		out = append(out, clusterCandidate{product: p, clusterID: clusterID})
	}
	return out, nil
}

func (e *Engine) buildLogEntry(item *types.Product, sc *scoredCandidate, profile Profile) *types.MatchDecisionLog {
	snapshot, _ := json.Marshal(profile)
	return &types.MatchDecisionLog{
		ProductID:       item.ID,
		CandidateID:     sc.product.ID,
		ProductTitle:    item.Title,
		CandidateTitle:  sc.product.Title,
		ProductImage:    item.ImageURL,
		CandidateImage:  sc.product.ImageURL,
		VisualScore:     sc.visualScore,
		TextScore:       sc.textScore,
		FinalScore:      sc.finalScore,
		Accepted:        sc.accepted,
		MatchMethod:     string(sc.method),
		ProfileSnapshot: datatypes.JSON(snapshot),
	}
}

func decodeEmbedding(raw datatypes.JSON) []float32 {
	if len(raw) == 0 {
		return nil
	}
	var emb []float32
	if err := json.Unmarshal(raw, &emb); err != nil {
		return nil
	}
	return emb
}
