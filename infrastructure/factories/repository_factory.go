package factories

import (
	"nppflow/database"
	"nppflow/domain/contracts"
	"nppflow/infrastructure/repositories"
)

// RepositoryFactory creates the SQLite-backed repositories.
type RepositoryFactory interface {
	GetBaseRepository() *repositories.BaseRepository
	CreateJobRepository() contracts.JobRepository
	CreateUserCacheRepository() contracts.UserCacheRepository
	CreateSiteUserCacheRepository(siteURL string) contracts.UserCacheRepository
}

// RepositoryFactoryImpl implements the factory
type RepositoryFactoryImpl struct {
	db        *database.Database
	baseRepo  *repositories.BaseRepository
	userCache contracts.UserCacheRepository
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(db *database.Database) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db:        db,
		baseRepo:  repositories.NewBaseRepository(db),
		userCache: repositories.NewSQLUserCacheRepository(db),
	}
}

// GetBaseRepository returns the base repository for transactional helpers
func (f *RepositoryFactoryImpl) GetBaseRepository() *repositories.BaseRepository {
	return f.baseRepo
}

// CreateJobRepository creates the job repository
func (f *RepositoryFactoryImpl) CreateJobRepository() contracts.JobRepository {
	return repositories.NewSQLJobRepository(f.db)
}

// CreateUserCacheRepository creates a user cache spanning every tenant site
func (f *RepositoryFactoryImpl) CreateUserCacheRepository() contracts.UserCacheRepository {
	return f.userCache
}

// CreateSiteUserCacheRepository creates a user cache that refuses entries for other sites
func (f *RepositoryFactoryImpl) CreateSiteUserCacheRepository(siteURL string) contracts.UserCacheRepository {
	return repositories.NewScopedUserCacheRepository(f.userCache, siteURL)
}
