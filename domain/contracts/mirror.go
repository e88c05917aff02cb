package contracts

import (
	"context"

	"nppflow/domain/npp"
)

// CompanionStore keeps the CSV extractions that mirror model files for reporting.
type CompanionStore interface {
	Write(ctx context.Context, folder npp.FolderPath, name string, content []byte, forecastID int) error
	List(ctx context.Context, folder npp.FolderPath) Result[npp.File]
	// Copy duplicates a companion into folder under a new name and forecast id.
	Copy(ctx context.Context, src npp.File, folder npp.FolderPath, name string, forecastID int) error
	Delete(ctx context.Context, file npp.File) error
}
