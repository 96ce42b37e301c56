package clustering

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ssebasarias/droptools/internal/clients/qdrant"
	"github.com/ssebasarias/droptools/internal/types"
)

type fakeProductRepo struct {
	unclustered []*types.Product
	all         []*types.Product
	marked      []uuid.UUID
}

func (f *fakeProductRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error) {
	var out []*types.Product
	for _, p := range f.all {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeProductRepo) GetUnclustered(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	if limit < len(f.unclustered) {
		return f.unclustered[:limit], nil
	}
	return f.unclustered, nil
}

func (f *fakeProductRepo) MarkClustered(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.marked = append(f.marked, id)
	return nil
}

type memberRecord struct {
	clusterID  uuid.UUID
	productID  uuid.UUID
	method     string
	confidence float64
}

type fakeClusterRepo struct {
	created     []*types.ProductCluster
	added       []memberRecord
	memberships []*types.ClusterMembership
}

func (f *fakeClusterRepo) Create(ctx context.Context, tx *gorm.DB, cluster *types.ProductCluster) (*types.ProductCluster, error) {
	if cluster.ID == uuid.Nil {
		cluster.ID = uuid.New()
	}
	f.created = append(f.created, cluster)
	return cluster, nil
}

func (f *fakeClusterRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProductCluster, error) {
	var out []*types.ProductCluster
	for _, c := range f.created {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeClusterRepo) AddMember(ctx context.Context, tx *gorm.DB, clusterID uuid.UUID, product *types.Product, method string, confidence float64) error {
	f.added = append(f.added, memberRecord{clusterID: clusterID, productID: product.ID, method: method, confidence: confidence})
	return nil
}

func (f *fakeClusterRepo) GetMembershipsByProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) ([]*types.ClusterMembership, error) {
	var out []*types.ClusterMembership
	for _, m := range f.memberships {
		for _, id := range productIDs {
			if m.ProductID == id {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakeClusterRepo) CountMembers(ctx context.Context, tx *gorm.DB, clusterID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range f.added {
		if m.clusterID == clusterID {
			n++
		}
	}
	return n, nil
}

type fakeDecisionLogRepo struct {
	entries []*types.MatchDecisionLog
}

func (f *fakeDecisionLogRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.MatchDecisionLog) error {
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeDecisionLogRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.MatchDecisionLog, error) {
	return f.entries, nil
}

type fakeVectorIndex struct {
	matches  []qdrant.VectorMatch
	queryErr error
	upserts  []qdrant.Vector
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, vectors []qdrant.Vector) error {
	f.upserts = append(f.upserts, vectors...)
	return nil
}

func (f *fakeVectorIndex) QueryMatches(ctx context.Context, q []float32, topK int, concept string) ([]qdrant.VectorMatch, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeVectorIndex) DeleteIDs(ctx context.Context, ids []string) error {
	return nil
}

func embJSON(t *testing.T, vals string) datatypes.JSON {
	t.Helper()
	return datatypes.JSON([]byte(vals))
}

func newTestEngine(t *testing.T, products *fakeProductRepo, clusters *fakeClusterRepo, decisions *fakeDecisionLogRepo, index *fakeVectorIndex) *Engine {
	t.Helper()
	store := NewWeightStore(&fakeWeightProfileRepo{}, testLogger(t))
	return NewEngine(testLogger(t), products, clusters, decisions, store, index, EngineConfig{
		BatchSize:        10,
		TopK:             5,
		QueryConcurrency: 1,
	})
}

func clusteredCandidate(concept, title string, embedding datatypes.JSON) (*types.Product, *types.ClusterMembership) {
	p := &types.Product{
		ID:        uuid.New(),
		Title:     title,
		Concept:   concept,
		Embedding: embedding,
		Clustered: true,
	}
	m := &types.ClusterMembership{
		ProductID: p.ID,
		ClusterID: uuid.New(),
	}
	return p, m
}

func TestProcessBatch_IndexErrorDefersProduct(t *testing.T) {
	item := &types.Product{
		ID:        uuid.New(),
		Title:     "wireless earbuds",
		Concept:   "earbuds",
		Embedding: embJSON(t, "[1,0]"),
	}
	products := &fakeProductRepo{unclustered: []*types.Product{item}}
	clusters := &fakeClusterRepo{}
	decisions := &fakeDecisionLogRepo{}
	index := &fakeVectorIndex{queryErr: fmt.Errorf("search unavailable")}
	engine := newTestEngine(t, products, clusters, decisions, index)

	n, err := engine.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 processed when candidate search fails, got %d", n)
	}
	if len(clusters.created) != 0 {
		t.Fatalf("expected no cluster seeded on search failure, got %d", len(clusters.created))
	}
	if len(products.marked) != 0 {
		t.Fatalf("expected product left unclustered for retry, got marked %v", products.marked)
	}
}

func TestProcessBatch_NoCandidatesSeedsCluster(t *testing.T) {
	item := &types.Product{
		ID:        uuid.New(),
		Title:     "wireless earbuds",
		Concept:   "earbuds",
		Embedding: embJSON(t, "[1,0]"),
	}
	products := &fakeProductRepo{unclustered: []*types.Product{item}}
	clusters := &fakeClusterRepo{}
	decisions := &fakeDecisionLogRepo{}
	index := &fakeVectorIndex{}
	engine := newTestEngine(t, products, clusters, decisions, index)

	n, err := engine.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 processed, got %d", n)
	}
	if len(clusters.created) != 1 {
		t.Fatalf("expected 1 cluster seeded, got %d", len(clusters.created))
	}
	if clusters.created[0].RepresentativeID != item.ID {
		t.Fatalf("expected item as representative, got %s", clusters.created[0].RepresentativeID)
	}
	if len(clusters.added) != 1 {
		t.Fatalf("expected 1 membership, got %d", len(clusters.added))
	}
	member := clusters.added[0]
	if member.method != string(MethodRepresentative) || member.confidence != 1.0 {
		t.Fatalf("expected REPRESENTATIVE membership with confidence 1.0, got %s %.2f", member.method, member.confidence)
	}
	if member.clusterID != clusters.created[0].ID {
		t.Fatalf("membership cluster %s does not match seeded cluster %s", member.clusterID, clusters.created[0].ID)
	}
	if len(products.marked) != 1 || products.marked[0] != item.ID {
		t.Fatalf("expected item marked clustered, got %v", products.marked)
	}
	if len(index.upserts) != 1 || index.upserts[0].ID != item.ID.String() {
		t.Fatalf("expected item indexed after seeding, got %v", index.upserts)
	}
}

func TestProcessBatch_JoinsBestScoringCluster(t *testing.T) {
	item := &types.Product{
		ID:        uuid.New(),
		Title:     "wireless earbuds",
		Concept:   "earbuds",
		Embedding: embJSON(t, "[1,0]"),
	}
	// Exact match: visual 1.0, text 1.0, final 1.0.
	best, bestMembership := clusteredCandidate("earbuds", "wireless earbuds", embJSON(t, "[1,0]"))
	// Same title but cosine 0.8: final 0.6*0.8 + 0.4*1.0 = 0.88.
	runnerUp, runnerUpMembership := clusteredCandidate("earbuds", "wireless earbuds", embJSON(t, "[0.8,0.6]"))

	products := &fakeProductRepo{
		unclustered: []*types.Product{item},
		all:         []*types.Product{best, runnerUp},
	}
	clusters := &fakeClusterRepo{memberships: []*types.ClusterMembership{bestMembership, runnerUpMembership}}
	decisions := &fakeDecisionLogRepo{}
	index := &fakeVectorIndex{matches: []qdrant.VectorMatch{
		{ID: runnerUp.ID.String(), Score: 0.8},
		{ID: best.ID.String(), Score: 1.0},
	}}
	engine := newTestEngine(t, products, clusters, decisions, index)

	n, err := engine.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 processed, got %d", n)
	}
	if len(clusters.created) != 0 {
		t.Fatalf("expected no new cluster when a match wins, got %d", len(clusters.created))
	}
	if len(clusters.added) != 1 {
		t.Fatalf("expected 1 membership, got %d", len(clusters.added))
	}
	member := clusters.added[0]
	if member.clusterID != bestMembership.ClusterID {
		t.Fatalf("expected join into highest-scoring cluster %s, got %s", bestMembership.ClusterID, member.clusterID)
	}
	if member.method != string(MethodHybridMatch) {
		t.Fatalf("expected HYBRID_MATCH, got %s", member.method)
	}
	if member.confidence < 0.99 {
		t.Fatalf("expected winner confidence ~1.0, got %.4f", member.confidence)
	}
}

func TestProcessBatch_GrayZoneWinnerNeedsAudit(t *testing.T) {
	item := &types.Product{
		ID:        uuid.New(),
		Title:     "abcde",
		Concept:   "earbuds",
		Embedding: embJSON(t, "[1,0]"),
	}
	// Visual 0.8, text 0.6: final 0.6*0.8 + 0.4*0.6 = 0.72, over the hybrid
	// threshold but inside the gray zone below 0.85.
	cand, membership := clusteredCandidate("earbuds", "abcxx", embJSON(t, "[0.8,0.6]"))

	products := &fakeProductRepo{
		unclustered: []*types.Product{item},
		all:         []*types.Product{cand},
	}
	clusters := &fakeClusterRepo{memberships: []*types.ClusterMembership{membership}}
	decisions := &fakeDecisionLogRepo{}
	index := &fakeVectorIndex{matches: []qdrant.VectorMatch{{ID: cand.ID.String(), Score: 0.8}}}
	engine := newTestEngine(t, products, clusters, decisions, index)

	if _, err := engine.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(clusters.added) != 1 {
		t.Fatalf("expected 1 membership, got %d", len(clusters.added))
	}
	member := clusters.added[0]
	if member.clusterID != membership.ClusterID {
		t.Fatalf("expected gray-zone winner still joined, got cluster %s", member.clusterID)
	}
	if member.method != string(MethodNeedsAudit) {
		t.Fatalf("expected NEEDS_AUDIT relabel below 0.85, got %s", member.method)
	}
	if len(decisions.entries) != 1 {
		t.Fatalf("expected 1 decision log entry, got %d", len(decisions.entries))
	}
	entry := decisions.entries[0]
	if entry.MatchMethod != string(MethodNeedsAudit) {
		t.Fatalf("expected log entry relabeled NEEDS_AUDIT, got %s", entry.MatchMethod)
	}
	if !entry.Accepted {
		t.Fatalf("expected gray-zone match logged as accepted")
	}
}
