// Package changeset folds per-commit file diffs into the set of paths to
// delete and the set of paths to fetch when moving between two revisions.
package changeset

import (
	"fmt"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind classifies a single file change.
type Kind int

const (
	// Modified is an in-place content change.
	Modified Kind = iota
	// Added is a new file.
	Added
	// Renamed moves a file from OldPath to NewPath.
	Renamed
	// Deleted removes OldPath.
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Renamed:
		return "renamed"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindOf classifies a change from the remote flags. The new-file flag wins
// over rename, which wins over delete.
func KindOf(newFile, renamed, deleted bool) Kind {
	switch {
	case newFile:
		return Added
	case renamed:
		return Renamed
	case deleted:
		return Deleted
	default:
		return Modified
	}
}

// Entry is one file change of one commit.
type Entry struct {
	OldPath string
	NewPath string
	Kind    Kind
}

// Result is the final pair of path sets, each sorted lexicographically.
type Result struct {
	ToDelete []string `json:"to_delete" yaml:"to_delete"`
	ToFetch  []string `json:"to_fetch"  yaml:"to_fetch"`
}

// Empty reports whether there is nothing to delete or fetch.
func (r Result) Empty() bool {
	return len(r.ToDelete) == 0 && len(r.ToFetch) == 0
}

// Len returns the number of paths in both sets.
func (r Result) Len() int {
	return len(r.ToDelete) + len(r.ToFetch)
}

// pathSet is an insertion-ordered set of paths.
type pathSet struct {
	m *orderedmap.OrderedMap[string, struct{}]
}

func newPathSet() pathSet {
	return pathSet{m: orderedmap.New[string, struct{}]()}
}

func (s pathSet) add(path string) {
	if _, ok := s.m.Get(path); ok {
		return
	}

	s.m.Set(path, struct{}{})
}

func (s pathSet) remove(path string) {
	s.m.Delete(path)
}

func (s pathSet) has(path string) bool {
	_, ok := s.m.Get(path)

	return ok
}

func (s pathSet) ordered() []string {
	out := make([]string, 0, s.m.Len())

	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}

	return out
}

// ChangeSet accumulates entries in arrival order. Every insertion into one
// set removes the path from the other, so the sets stay disjoint and the
// last change to a path wins.
type ChangeSet struct {
	toDelete pathSet
	toFetch  pathSet
}

// New creates an empty ChangeSet.
func New() *ChangeSet {
	return &ChangeSet{
		toDelete: newPathSet(),
		toFetch:  newPathSet(),
	}
}

// Fold applies one entry.
func (c *ChangeSet) Fold(e Entry) {
	switch e.Kind {
	case Added, Modified:
		c.fetch(e.NewPath)

	case Renamed:
		c.fetch(e.NewPath)
		c.delete(e.OldPath)

	case Deleted:
		c.toFetch.remove(e.NewPath)
		c.delete(e.OldPath)
	}
}

func (c *ChangeSet) fetch(path string) {
	c.toDelete.remove(path)
	c.toFetch.add(path)
}

func (c *ChangeSet) delete(path string) {
	c.toFetch.remove(path)
	c.toDelete.add(path)
}

// Contains reports which set holds path, if any.
func (c *ChangeSet) Contains(path string) (inDelete, inFetch bool) {
	return c.toDelete.has(path), c.toFetch.has(path)
}

// Pending returns both sets in insertion order.
func (c *ChangeSet) Pending() (toDelete, toFetch []string) {
	return c.toDelete.ordered(), c.toFetch.ordered()
}

// Finalize returns both sets sorted lexicographically.
func (c *ChangeSet) Finalize() Result {
	toDelete, toFetch := c.Pending()

	slices.Sort(toDelete)
	slices.Sort(toFetch)

	return Result{ToDelete: toDelete, ToFetch: toFetch}
}
