package updater_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/payload"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/internal/state"
	"github.com/smykla-skalski/patchlaunch/internal/telemetry"
	"github.com/smykla-skalski/patchlaunch/internal/updater"
)

var _ = Describe("Updater", func() {
	var (
		ctx       context.Context
		workDir   string
		releases  *fakeReleases
		diffs     *fakeDiffs
		sources   *fakeSources
		extractor *fakeExtractor
		reporter  *fakeReporter
		store     *state.MemoryStore
		rec       *progress.Recorder
		u         *updater.Updater
	)

	latest := release.Release{DownloadLink: "https://example.com/a.zip", HeadRevision: "rev-2", Tag: "v2.0.0"}

	build := func() {
		u = updater.NewUpdater(releases, diffs, sources, store,
			updater.WithWorkDir(workDir),
			updater.WithInstallDir("Game"),
			updater.WithExtractor(extractor),
			updater.WithReporter(reporter),
			updater.WithVersion("1.4.0"),
		)
	}

	install := func(rev release.Revision) {
		GinkgoHelper()

		Expect(os.MkdirAll(filepath.Join(workDir, "Game", "game-tree"), 0o755)).To(Succeed())
		Expect(store.Save(&state.State{Revision: rev, Tag: "v1.0.0", ClientID: 7})).To(Succeed())
	}

	lastDone := func() progress.Event {
		GinkgoHelper()

		events := rec.Events()
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Kind == progress.EventDone {
				return events[i]
			}
		}

		Fail("no Done event recorded")

		return progress.Event{}
	}

	BeforeEach(func() {
		ctx = context.Background()
		workDir = GinkgoT().TempDir()
		releases = &fakeReleases{rel: latest}
		diffs = &fakeDiffs{result: changeset.Result{ToDelete: []string{"old"}, ToFetch: []string{"new"}}}
		sources = &fakeSources{
			full:  &fakeSource{rev: "rev-2"},
			patch: &fakeSource{rev: "rev-2"},
		}
		extractor = &fakeExtractor{}
		reporter = &fakeReporter{assignID: telemetry.NoID}
		store = state.NewMemoryStore(nil)
		rec = progress.NewRecorder()

		build()
	})

	Describe("Check", func() {
		It("is not installed when the release resolves and removes a leftover archive", func() {
			Expect(os.WriteFile(u.ArchivePath(), []byte("torn"), 0o600)).To(Succeed())

			s := u.Check(ctx)

			Expect(s.State).To(Equal(updater.StateNotInstalled))
			Expect(s.Reachable).To(BeTrue())
			Expect(s.Latest).To(Equal(latest))
			Expect(s.CanInstall()).To(BeTrue())
			Expect(u.ArchivePath()).NotTo(BeAnExistingFile())
		})

		It("is unavailable when nothing is installed and the remote is down", func() {
			releases.err = errors.New("dial tcp: refused")

			s := u.Check(ctx)

			Expect(s.State).To(Equal(updater.StateUnavailable))
			Expect(s.CanInstall()).To(BeFalse())
			Expect(s.CanUpdate()).To(BeFalse())
			Expect(s.LastError).To(HaveOccurred())
		})

		It("treats an empty install directory as not installed", func() {
			Expect(os.MkdirAll(u.InstallRoot(), 0o755)).To(Succeed())

			Expect(u.Check(ctx).State).To(Equal(updater.StateNotInstalled))
		})

		It("is current when the revisions match", func() {
			install("rev-2")

			s := u.Check(ctx)

			Expect(s.State).To(Equal(updater.StateCurrent))
			Expect(s.Installed).To(BeTrue())
			Expect(s.CanPlay()).To(BeTrue())
			Expect(s.CanUpdate()).To(BeFalse())
		})

		It("is stale when the revisions differ", func() {
			install("rev-1")

			s := u.Check(ctx)

			Expect(s.State).To(Equal(updater.StateStale))
			Expect(s.InstalledRevision).To(Equal(release.Revision("rev-1")))
			Expect(s.CanUpdate()).To(BeTrue())
			Expect(s.CanPlay()).To(BeTrue())
		})

		It("allows play but not update when the remote is unreachable", func() {
			install("rev-1")
			releases.err = errors.New("timeout")

			s := u.Check(ctx)

			Expect(s.State).To(Equal(updater.StateCurrent))
			Expect(s.Reachable).To(BeFalse())
			Expect(s.CanPlay()).To(BeTrue())
			Expect(s.CanUpdate()).To(BeFalse())
		})

		It("requires repair for files without a recorded revision", func() {
			Expect(os.MkdirAll(filepath.Join(u.InstallRoot(), "tree"), 0o755)).To(Succeed())

			s := u.Check(ctx)

			Expect(s.State).To(Equal(updater.StateFailed))
			Expect(s.RepairRequired).To(BeTrue())
			Expect(s.CanRecover()).To(BeTrue())
			Expect(s.CanInstall()).To(BeFalse())
			Expect(s.CanUpdate()).To(BeFalse())
		})
	})

	Describe("Install", func() {
		It("downloads, extracts, persists and reports", func() {
			Expect(u.Install(ctx, rec)).To(Succeed())

			st, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Revision).To(Equal(release.Revision("rev-2")))
			Expect(st.Tag).To(Equal("v2.0.0"))
			Expect(st.InstallDir).To(Equal("Game"))

			Expect(sources.archives).To(Equal([]string{filepath.Join(workDir, "Game.zip")}))
			Expect(sources.full.roots).To(Equal([]string{workDir}))
			Expect(u.ArchivePath()).NotTo(BeAnExistingFile())
			Expect(filepath.Join(u.InstallRoot(), "game-tree", "Game.exe")).To(BeAnExistingFile())

			Expect(u.Status().State).To(Equal(updater.StateCurrent))
			Expect(reporter.updates).To(Equal([]string{"v2.0.0"}))
			Expect(lastDone().Err).NotTo(HaveOccurred())
			Expect(rec.Phases()).To(Equal([]progress.Phase{
				progress.PhaseResolving,
				progress.PhaseDownloading,
				progress.PhaseExtracting,
			}))
		})

		It("keeps the persisted revision when the download fails", func() {
			sources.full.err = errors.Mark(errors.New("HTTP 503"), payload.ErrNotFound)

			err := u.Install(ctx, rec)

			Expect(err).To(HaveOccurred())
			Expect(store.Saves()).To(BeZero())
			Expect(extractor.calls).To(BeZero())

			s := u.Status()
			Expect(s.State).To(Equal(updater.StateFailed))
			Expect(s.RepairRequired).To(BeFalse())
			Expect(s.CanInstall()).To(BeTrue())

			Expect(lastDone().Err).To(MatchError(err))
			Expect(rec.Last().Percent).To(BeZero())
			Expect(reporter.errs).To(HaveLen(1))
			Expect(reporter.errs[0].version).To(Equal("1.4.0"))
		})

		It("requires repair after an extraction failure", func() {
			extractor.err = errors.New("unexpected EOF")

			Expect(u.Install(ctx, rec)).NotTo(Succeed())

			s := u.Status()
			Expect(s.State).To(Equal(updater.StateFailed))
			Expect(s.RepairRequired).To(BeTrue())
			Expect(s.CanRecover()).To(BeTrue())
			Expect(store.Saves()).To(BeZero())

			Expect(errors.Is(u.Install(ctx, rec), updater.ErrNotAllowed)).To(BeTrue())
			Expect(errors.Is(u.Update(ctx, rec), updater.ErrNotAllowed)).To(BeTrue())
		})

		It("requires repair when the revision cannot be saved", func() {
			store.FailSaves(errors.New("disk full"))

			Expect(u.Install(ctx, rec)).To(MatchError(ContainSubstring("disk full")))
			Expect(u.Status().RepairRequired).To(BeTrue())
		})

		It("is not offered when the installation is current", func() {
			install("rev-2")

			Expect(errors.Is(u.Install(ctx, rec), updater.ErrNotAllowed)).To(BeTrue())
			Expect(sources.archives).To(BeEmpty())
		})
	})

	Describe("Update", func() {
		BeforeEach(func() {
			install("rev-1")
		})

		It("patches from the installed to the latest revision", func() {
			Expect(u.Update(ctx, rec)).To(Succeed())

			Expect(diffs.calls).To(Equal([]compareCall{{from: "rev-1", to: "rev-2"}}))
			Expect(sources.changes).To(Equal([]changeset.Result{diffs.result}))
			Expect(sources.patch.roots).To(Equal([]string{u.InstallRoot()}))

			st, _ := store.Load()
			Expect(st.Revision).To(Equal(release.Revision("rev-2")))
			Expect(st.Tag).To(Equal("v2.0.0"))
			Expect(st.ClientID).To(Equal(7))

			Expect(u.Status().State).To(Equal(updater.StateCurrent))
			Expect(reporter.updates).To(Equal([]string{"v2.0.0"}))
		})

		It("keeps the installed revision when the patch fails and can retry", func() {
			sources.patch.err = errors.Mark(errors.New("HTTP 500"), payload.ErrPartialFailure)

			Expect(u.Update(ctx, rec)).NotTo(Succeed())

			st, _ := store.Load()
			Expect(st.Revision).To(Equal(release.Revision("rev-1")))

			s := u.Status()
			Expect(s.State).To(Equal(updater.StateFailed))
			Expect(s.RepairRequired).To(BeFalse())
			Expect(s.CanUpdate()).To(BeTrue())
			Expect(reporter.errs).To(HaveLen(1))
			Expect(reporter.errs[0].id).To(Equal(7))

			Expect(u.Check(ctx).State).To(Equal(updater.StateStale))

			sources.patch.err = nil
			Expect(u.Update(ctx, rec)).To(Succeed())
		})

		It("requires repair when the installation layout is ambiguous", func() {
			sources.patch.err = errors.Wrap(payload.ErrAmbiguousInstallation, "a, b")

			Expect(u.Update(ctx, rec)).NotTo(Succeed())
			Expect(u.Status().RepairRequired).To(BeTrue())
			Expect(u.Check(ctx).State).To(Equal(updater.StateFailed))
		})

		It("aborts without patching when the comparison fails", func() {
			diffs.err = errors.New("HTTP 502")

			Expect(u.Update(ctx, rec)).NotTo(Succeed())
			Expect(sources.changes).To(BeEmpty())
			Expect(rec.Last().Percent).To(BeZero())
		})

		It("is not offered when current", func() {
			Expect(store.Save(&state.State{Revision: "rev-2", ClientID: 7})).To(Succeed())

			Expect(errors.Is(u.Update(ctx, rec), updater.ErrNotAllowed)).To(BeTrue())
			Expect(diffs.calls).To(BeEmpty())
		})
	})

	Describe("Recover", func() {
		It("removes the installation and installs again", func() {
			install("rev-1")
			stray := filepath.Join(u.InstallRoot(), "stray-dir")
			Expect(os.MkdirAll(stray, 0o755)).To(Succeed())

			Expect(u.Recover(ctx, rec)).To(Succeed())

			Expect(stray).NotTo(BeADirectory())
			Expect(filepath.Join(u.InstallRoot(), "game-tree", "Game.exe")).To(BeAnExistingFile())
			Expect(u.Status().State).To(Equal(updater.StateCurrent))
			Expect(u.Status().RepairRequired).To(BeFalse())

			st, _ := store.Load()
			Expect(st.Revision).To(Equal(release.Revision("rev-2")))
		})

		It("clears a required repair", func() {
			extractor.err = errors.New("corrupt")
			Expect(u.Install(ctx, rec)).NotTo(Succeed())

			extractor.err = nil
			Expect(u.Recover(ctx, rec)).To(Succeed())
			Expect(u.Status().RepairRequired).To(BeFalse())
		})
	})

	Describe("single writer", func() {
		It("rejects overlapping mutations without side effects", func() {
			sources.full.gate = make(chan struct{})
			sources.full.started = make(chan struct{})

			done := make(chan error, 1)

			go func() {
				done <- u.Install(ctx, rec)
			}()

			Eventually(sources.full.started).WithTimeout(time.Second).Should(BeClosed())
			Expect(u.InFlight()).To(BeTrue())

			other := progress.NewRecorder()
			Expect(u.Update(ctx, other)).To(MatchError(updater.ErrMutationInFlight))
			Expect(u.Recover(ctx, other)).To(MatchError(updater.ErrMutationInFlight))
			Expect(u.Install(ctx, other)).To(MatchError(updater.ErrMutationInFlight))
			Expect(other.Events()).To(BeEmpty())
			Expect(u.Check(ctx).State).To(Equal(updater.StateInstalling))

			close(sources.full.gate)

			Eventually(done).WithTimeout(time.Second).Should(Receive(BeNil()))
			Expect(u.InFlight()).To(BeFalse())
		})
	})

	Describe("EnsureClientID", func() {
		It("assigns and persists an id on first run", func() {
			reporter.assignID = 31

			id, err := u.EnsureClientID(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(31))

			st, _ := store.Load()
			Expect(st.ClientID).To(Equal(31))
		})

		It("keeps an existing id", func() {
			Expect(store.Save(&state.State{ClientID: 5})).To(Succeed())

			id, err := u.EnsureClientID(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(5))
			Expect(reporter.assigned).To(BeZero())
		})

		It("saves nothing when no id could be assigned", func() {
			id, err := u.EnsureClientID(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(telemetry.NoID))
			Expect(store.Saves()).To(BeZero())
		})
	})
})
