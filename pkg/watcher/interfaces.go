package watcher

import (
	"context"
	"io"

	"igwatcher/pkg/profile"
	"igwatcher/pkg/state"
)

// Fetcher produces a profile snapshot for a username. Both the API client
// and the browser engine implement it.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, username string) (*profile.Snapshot, error)
}

// PhotoDownloader fetches raw picture bytes.
type PhotoDownloader interface {
	DownloadPhoto(ctx context.Context, url string) ([]byte, error)
}

// Journal appends observations to the run log.
type Journal interface {
	Append(obs profile.Observation) error
}

// StateStore loads and saves the last-seen picture URLs.
type StateStore interface {
	Load() (*state.File, error)
	Save(f *state.File) error
}

// PictureStorage persists downloaded pictures.
type PictureStorage interface {
	SavePicture(r io.Reader, filename string) (string, error)
}
