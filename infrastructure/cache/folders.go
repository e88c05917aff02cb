package cache

import (
	"slices"
	"time"

	"nppflow/domain/npp"

	gocache "github.com/patrickmn/go-cache"
)

// FolderListings caches file listings by server-relative folder URL.
type FolderListings struct {
	folders *gocache.Cache
}

// NewFolderListings creates a listing cache with the given TTL.
func NewFolderListings(ttl time.Duration) *FolderListings {
	return &FolderListings{folders: gocache.New(ttl, 2*ttl)}
}

func (f *FolderListings) Get(folderURL string) ([]npp.File, bool) {
	v, ok := f.folders.Get(folderURL)
	if !ok {
		return nil, false
	}
	return slices.Clone(v.([]npp.File)), true
}

func (f *FolderListings) Set(folderURL string, files []npp.File) {
	f.folders.SetDefault(folderURL, slices.Clone(files))
}

// Invalidate drops a folder so the next read goes remote.
func (f *FolderListings) Invalidate(folderURL string) {
	f.folders.Delete(folderURL)
}
