package catalog

import (
	"context"
	"os"

	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

// FileSource 从静态数据文件读取目录，YAML 是 JSON 的超集，因此 .json 文件同样可以读取
type FileSource struct {
	SuppliesPath  string
	DisastersPath string
}

func (s FileSource) Load(ctx context.Context) (*Catalog, error) {
	var items []domain.SupplyItem
	if err := readYAML(s.SuppliesPath, &items); err != nil {
		return nil, domain.WrapError(domain.ErrCatalogLoad, err, "无法读取物资目录 %s", s.SuppliesPath)
	}

	var disasters []domain.Disaster
	if err := readYAML(s.DisastersPath, &disasters); err != nil {
		return nil, domain.WrapError(domain.ErrCatalogLoad, err, "无法读取灾害表 %s", s.DisastersPath)
	}

	return New(items, disasters)
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// Store 由 repository 实现
type Store interface {
	GetSupplyItems(ctx context.Context) ([]domain.SupplyItem, error)
	GetDisasters(ctx context.Context) ([]domain.Disaster, error)
}

type StoreSource struct {
	Store Store
}

func (s StoreSource) Load(ctx context.Context) (*Catalog, error) {
	items, err := s.Store.GetSupplyItems(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCatalogLoad, err, "无法从数据库读取物资目录")
	}

	disasters, err := s.Store.GetDisasters(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCatalogLoad, err, "无法从数据库读取灾害表")
	}

	return New(items, disasters)
}
