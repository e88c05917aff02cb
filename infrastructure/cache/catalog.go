package cache

import (
	"context"
	"time"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/logging"

	gocache "github.com/patrickmn/go-cache"
)

// Catalog keys for the template lists.
const (
	KeyMasterStages           = "Master Stages"
	KeyMasterActions          = "Master Actions"
	KeyMasterFolders          = "Master Folders"
	KeyMasterOpportunityTypes = "Master Opportunity Types"
)

// Catalog is a read-through cache over the master lists. Only successful reads are kept.
type Catalog struct {
	source contracts.MasterDataRepository
	items  *gocache.Cache
	logger *logging.Logger
}

var _ contracts.MasterCatalog = (*Catalog)(nil)

// NewCatalog caches source reads for ttl.
func NewCatalog(source contracts.MasterDataRepository, ttl time.Duration) *Catalog {
	return &Catalog{
		source: source,
		items:  gocache.New(ttl, 2*ttl),
		logger: logging.Default().WithComponent("master_catalog"),
	}
}

func readThrough[T any](c *Catalog, key string, load func() contracts.Result[T]) contracts.Result[T] {
	if v, ok := c.items.Get(key); ok {
		return v.(contracts.Result[T])
	}
	res := load()
	if !res.Failed() {
		c.items.SetDefault(key, res)
	} else {
		c.logger.Warn("Master list read failed, not cached", "list", key, "error", res.Err())
	}
	return res
}

func (c *Catalog) MasterStages(ctx context.Context) contracts.Result[npp.MasterStage] {
	return readThrough(c, KeyMasterStages, func() contracts.Result[npp.MasterStage] { return c.source.MasterStages(ctx) })
}

func (c *Catalog) MasterActions(ctx context.Context) contracts.Result[npp.MasterAction] {
	return readThrough(c, KeyMasterActions, func() contracts.Result[npp.MasterAction] { return c.source.MasterActions(ctx) })
}

func (c *Catalog) MasterFolders(ctx context.Context) contracts.Result[npp.MasterFolder] {
	return readThrough(c, KeyMasterFolders, func() contracts.Result[npp.MasterFolder] { return c.source.MasterFolders(ctx) })
}

func (c *Catalog) MasterOpportunityTypes(ctx context.Context) contracts.Result[npp.MasterOpportunityType] {
	return readThrough(c, KeyMasterOpportunityTypes, func() contracts.Result[npp.MasterOpportunityType] {
		return c.source.MasterOpportunityTypes(ctx)
	})
}

func (c *Catalog) MasterItems(ctx context.Context, list contracts.MasterList) contracts.Result[npp.MasterItem] {
	return readThrough(c, string(list), func() contracts.Result[npp.MasterItem] { return c.source.MasterItems(ctx, list) })
}

// Invalidate drops one list by name.
func (c *Catalog) Invalidate(list string) {
	c.items.Delete(list)
}

func (c *Catalog) InvalidateAll() {
	c.items.Flush()
}
