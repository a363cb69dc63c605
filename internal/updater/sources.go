package updater

import (
	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/fetch"
	"github.com/smykla-skalski/patchlaunch/internal/payload"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	pkgconfig "github.com/smykla-skalski/patchlaunch/pkg/config"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

// ErrNoPatchURL is returned when an update needs raw files but no patch base
// URL is configured.
var ErrNoPatchURL = errors.New("remote.patch_base_url is not configured")

// Sources builds the payload source for each kind of mutation.
type Sources interface {
	// Full returns the source of a complete release archive.
	Full(rel release.Release, archivePath string) (payload.Source, error)

	// Patch returns the source applying changes on top of an installation.
	Patch(rel release.Release, changes changeset.Result) (payload.Source, error)
}

// SourceFactory builds sources from configuration.
type SourceFactory struct {
	Kind            pkgconfig.SourceKind
	Remote          *pkgconfig.RemoteConfig
	Cloud           *pkgconfig.CloudConfig
	Downloader      *fetch.Downloader
	PatchDownloader *fetch.Downloader
	Logger          logger.Logger
}

// Full implements Sources.
//
//nolint:ireturn // Sources contract
func (f *SourceFactory) Full(rel release.Release, archivePath string) (payload.Source, error) {
	log := f.getLogger()

	switch f.Kind {
	case pkgconfig.SourceCloud:
		if f.Cloud == nil || f.Cloud.Link == "" {
			return nil, errors.Wrap(payload.ErrUnsupportedLink, "cloud.link is not configured")
		}

		link := f.Cloud.Link

		provider, err := payload.ProviderForLink(link, f.Cloud)
		if err != nil {
			return nil, err
		}

		return payload.NewCloudObjectSource(rel, link, archivePath, provider,
			payload.WithCloudLogger(log),
		), nil

	case pkgconfig.SourceArchive, "":
		return payload.NewArchiveHTTPSource(rel, archivePath,
			payload.WithDownloader(f.Downloader),
			payload.WithArchiveLogger(log),
		), nil

	default:
		return nil, errors.Wrapf(pkgconfig.ErrInvalidSource, "%q", f.Kind)
	}
}

// Patch implements Sources.
//
//nolint:ireturn // Sources contract
func (f *SourceFactory) Patch(rel release.Release, changes changeset.Result) (payload.Source, error) {
	baseURL := f.Remote.PatchURLForTag(rel.Tag)
	if baseURL == "" {
		return nil, ErrNoPatchURL
	}

	downloader := f.PatchDownloader
	if downloader == nil {
		downloader = f.Downloader
	}

	return payload.NewPatchFileSetSource(rel, changes, baseURL,
		payload.WithPatchDownloader(downloader),
		payload.WithPatchLogger(f.getLogger()),
	), nil
}

//nolint:ireturn // logger.Logger is the package's logging contract
func (f *SourceFactory) getLogger() logger.Logger {
	if f.Logger == nil {
		return logger.NewNoOpLogger()
	}

	return f.Logger
}
