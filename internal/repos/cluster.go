package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/ssebasarias/droptools/internal/logger"
  "github.com/ssebasarias/droptools/internal/types"
)

type ClusterRepo interface {
  Create(ctx context.Context, tx *gorm.DB, cluster *types.ProductCluster) (*types.ProductCluster, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProductCluster, error)
  // AddMember creates the membership row and folds the product into the
  // cluster's counters in one transaction.
  AddMember(ctx context.Context, tx *gorm.DB, clusterID uuid.UUID, product *types.Product, method string, confidence float64) error
  GetMembershipsByProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) ([]*types.ClusterMembership, error)
  CountMembers(ctx context.Context, tx *gorm.DB, clusterID uuid.UUID) (int64, error)
}

type clusterRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewClusterRepo(db *gorm.DB, baseLog *logger.Logger) ClusterRepo {
  return &clusterRepo{
    db:  db,
    log: baseLog.With("repo", "ClusterRepo"),
  }
}

func (r *clusterRepo) Create(ctx context.Context, tx *gorm.DB, cluster *types.ProductCluster) (*types.ProductCluster, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if cluster == nil {
    return nil, nil
  }
  if err := transaction.WithContext(ctx).Create(cluster).Error; err != nil {
    return nil, err
  }
  return cluster, nil
}

func (r *clusterRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProductCluster, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.ProductCluster
  if len(ids) == 0 {
    return out, nil
  }
  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *clusterRepo) AddMember(ctx context.Context, tx *gorm.DB, clusterID uuid.UUID, product *types.Product, method string, confidence float64) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if clusterID == uuid.Nil || product == nil {
    return nil
  }
  now := time.Now()
  return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    membership := &types.ClusterMembership{
      ProductID:       product.ID,
      ClusterID:       clusterID,
      MatchConfidence: confidence,
      MatchMethod:     method,
    }
    if err := txx.Create(membership).Error; err != nil {
      return err
    }
    // Running-average update keeps average_price correct without a rescan.
    return txx.Model(&types.ProductCluster{}).
      Where("id = ?", clusterID).
      Updates(map[string]interface{}{
        "total_competitors": gorm.Expr("total_competitors + 1"),
        "average_price":     gorm.Expr("(average_price * total_competitors + ?) / (total_competitors + 1)", product.Price),
        "updated_at":        now,
      }).Error
  })
}

func (r *clusterRepo) GetMembershipsByProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) ([]*types.ClusterMembership, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.ClusterMembership
  if len(productIDs) == 0 {
    return out, nil
  }
  if err := transaction.WithContext(ctx).
    Where("product_id IN ?", productIDs).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *clusterRepo) CountMembers(ctx context.Context, tx *gorm.DB, clusterID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var n int64
  if err := transaction.WithContext(ctx).
    Model(&types.ClusterMembership{}).
    Where("cluster_id = ?", clusterID).
    Count(&n).Error; err != nil {
    return 0, err
  }
  return n, nil
}
