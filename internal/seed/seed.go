package seed

import (
	"context"
	"log/slog"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

// CatalogWriter 由 repository.Repository 实现
type CatalogWriter interface {
	ReplaceCatalog(ctx context.Context, items []domain.SupplyItem, disasters []domain.Disaster) error
}

// SeedCatalog 读取静态数据文件，校验后整体替换数据库中的目录
func SeedCatalog(ctx context.Context, w CatalogWriter, src catalog.FileSource) (*catalog.Catalog, error) {
	cat, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := w.ReplaceCatalog(ctx, cat.Items, cat.Disasters()); err != nil {
		return nil, err
	}

	slog.Info("已写入物资目录", "items", cat.Len(), "disasters", len(cat.Disasters()))
	return cat, nil
}
