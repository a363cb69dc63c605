package state_test

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/internal/state"
)

var _ = Describe("FileStore", func() {
	var (
		dir   string
		path  string
		store *state.FileStore
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "patchlaunch", "state.toml")
		store = state.NewFileStore(path, state.WithInstallDir("Game"))
	})

	It("returns defaults when the file is missing", func() {
		s, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(&state.State{InstallDir: "Game", ClientID: state.NoClientID}))
	})

	It("round-trips saved state", func() {
		saved := &state.State{
			Revision:   "c0ffee0123",
			Tag:        "v1.4.0",
			InstallDir: "Game",
			SaveSlot:   2,
			ClientID:   917,
		}

		Expect(store.Save(saved)).To(Succeed())
		Expect(store.Path()).To(BeARegularFile())

		loaded, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(saved))
	})

	It("writes with owner-only permissions and leaves no temp files", func() {
		Expect(store.Save(state.Defaults("Game"))).To(Succeed())

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		entries, err := os.ReadDir(filepath.Dir(path))
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("keeps the unassigned client id when the field is absent", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0o700)).To(Succeed())
		Expect(os.WriteFile(path, []byte("revision = \"abc\"\n"), 0o600)).To(Succeed())

		s, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(s.Revision)).To(Equal("abc"))
		Expect(s.ClientID).To(Equal(state.NoClientID))
		Expect(s.InstallDir).To(Equal("Game"))
	})

	It("reports a corrupt file", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0o700)).To(Succeed())
		Expect(os.WriteFile(path, []byte("revision = [unterminated"), 0o600)).To(Succeed())

		_, err := store.Load()
		Expect(errors.Is(err, state.ErrCorruptState)).To(BeTrue())
	})

	It("rejects a nil state", func() {
		Expect(store.Save(nil)).NotTo(Succeed())
	})
})

var _ = Describe("MemoryStore", func() {
	It("holds a copy of the state", func() {
		store := state.NewMemoryStore(nil)

		s, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.ClientID).To(Equal(state.NoClientID))

		s.Tag = "v1"
		again, _ := store.Load()
		Expect(again.Tag).To(BeEmpty())

		Expect(store.Save(s)).To(Succeed())
		again, _ = store.Load()
		Expect(again.Tag).To(Equal("v1"))
		Expect(store.Saves()).To(Equal(1))
	})

	It("can be made to fail saves", func() {
		store := state.NewMemoryStore(&state.State{Tag: "v0"})
		store.FailSaves(errors.New("disk full"))

		Expect(store.Save(&state.State{Tag: "v1"})).To(MatchError("disk full"))

		s, _ := store.Load()
		Expect(s.Tag).To(Equal("v0"))
		Expect(store.Saves()).To(BeZero())
	})
})
