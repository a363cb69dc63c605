package gitlab

import "github.com/cockroachdb/errors"

type (
	// Release is a project release.
	Release struct {
		TagName  string
		Name     string
		CommitID string   // Head revision the release points at
		Sources  []Source // Auto-generated source archives, server order
	}

	// Source is a downloadable source archive of a release.
	Source struct {
		Format string
		URL    string
	}

	// Commit is a single commit returned by the compare endpoint.
	Commit struct {
		ID      string
		ShortID string
		Title   string
	}

	// Diff is one file change of a commit.
	Diff struct {
		OldPath     string
		NewPath     string
		NewFile     bool
		RenamedFile bool
		DeletedFile bool
	}

	wireRelease struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
		Commit  *struct {
			ID string `json:"id"`
		} `json:"commit"`
		Assets struct {
			Sources []wireSource `json:"sources"`
		} `json:"assets"`
	}

	wireSource struct {
		Format string `json:"format"`
		URL    string `json:"url"`
	}

	wireCompare struct {
		Commits []wireCommit `json:"commits"`
	}

	wireCommit struct {
		ID      string `json:"id"`
		ShortID string `json:"short_id"`
		Title   string `json:"title"`
	}

	wireDiff struct {
		OldPath     string `json:"old_path"`
		NewPath     string `json:"new_path"`
		NewFile     bool   `json:"new_file"`
		RenamedFile bool   `json:"renamed_file"`
		DeletedFile bool   `json:"deleted_file"`
	}
)

func (w wireRelease) toRelease() (Release, error) {
	if w.TagName == "" {
		return Release{}, errors.Wrap(ErrAPIFormat, "missing tag_name")
	}

	if w.Commit == nil || w.Commit.ID == "" {
		return Release{}, errors.Wrapf(ErrAPIFormat, "release %s: missing commit.id", w.TagName)
	}

	sources := make([]Source, 0, len(w.Assets.Sources))
	for _, s := range w.Assets.Sources {
		sources = append(sources, Source(s))
	}

	return Release{
		TagName:  w.TagName,
		Name:     w.Name,
		CommitID: w.Commit.ID,
		Sources:  sources,
	}, nil
}
