package main

import (
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/color"
	"github.com/smykla-skalski/patchlaunch/internal/crashdump"
	internalconfig "github.com/smykla-skalski/patchlaunch/internal/config"
	"github.com/smykla-skalski/patchlaunch/internal/fetch"
	"github.com/smykla-skalski/patchlaunch/internal/gitlab"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/internal/state"
	"github.com/smykla-skalski/patchlaunch/internal/telemetry"
	"github.com/smykla-skalski/patchlaunch/internal/updater"
	"github.com/smykla-skalski/patchlaunch/internal/xdg"
	"github.com/smykla-skalski/patchlaunch/pkg/config"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

const (
	dialTimeout           = 15 * time.Second
	responseHeaderTimeout = 60 * time.Second
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg      *config.Config
	log      *logger.SlogAdapter
	theme    color.Theme
	releases *release.Resolver
	diffs    *changeset.Resolver
	reporter telemetry.Reporter
	updater  *updater.Updater
}

// newApp loads configuration and wires every collaborator. The caller must
// call close.
func newApp(flags *pflag.FlagSet) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	return newAppWithConfig(cfg)
}

// newAppWithConfig wires every collaborator around an already loaded config.
func newAppWithConfig(cfg *config.Config) (*app, error) {
	log, err := logger.NewFileLogger(xdg.LogFile(), debugMode, traceMode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}

	crashConfig = cfg

	a := &app{
		cfg:   cfg,
		log:   log,
		theme: color.NewTheme(color.Enabled(os.Stdout, noColorFlag)),
	}

	workDir, err := resolveWorkDir(cfg.GetInstall())
	if err != nil {
		_ = log.Close()

		return nil, err
	}

	remote := cfg.GetRemote()
	install := cfg.GetInstall()
	userAgent := "patchlaunch/" + version

	client := gitlab.NewClient(remote.ProjectID,
		gitlab.WithHTTPClient(&http.Client{Timeout: remote.GetTimeout()}),
		gitlab.WithBaseURL(remote.GetBaseURL()),
		gitlab.WithToken(remote.Token),
		gitlab.WithUserAgent(userAgent),
		gitlab.WithLogger(log),
	)

	a.releases = release.NewResolver(client, release.WithLogger(log))
	a.diffs = changeset.NewResolver(client, changeset.WithLogger(log))
	a.reporter = newReporter(cfg.GetTelemetry(), log)

	transferClient := newTransferClient()
	downloader := fetch.NewDownloader(transferClient, fetch.WithUserAgent(userAgent))

	patchDownloader := downloader
	if remote.Token != "" && sameHost(remote.PatchBaseURL, remote.GetBaseURL()) {
		patchDownloader = fetch.NewDownloader(transferClient,
			fetch.WithUserAgent(userAgent),
			fetch.WithHeader(gitlab.TokenHeader, remote.Token),
		)
	}

	sources := &updater.SourceFactory{
		Kind:            install.GetSource(),
		Remote:          remote,
		Cloud:           cfg.GetCloud(),
		Downloader:      downloader,
		PatchDownloader: patchDownloader,
		Logger:          log,
	}

	store := state.NewFileStore(xdg.StateFile(),
		state.WithInstallDir(install.GetDir()),
		state.WithLogger(log),
	)

	a.updater = updater.NewUpdater(a.releases, a.diffs, sources, store,
		updater.WithWorkDir(workDir),
		updater.WithInstallDir(install.GetDir()),
		updater.WithReporter(a.reporter),
		updater.WithLogger(log),
		updater.WithVersion(version),
	)

	crashInstall = func() *crashdump.InstallInfo {
		st := a.updater.Status()

		return &crashdump.InstallInfo{
			Tag:      st.InstalledTag,
			Revision: string(st.InstalledRevision),
			Root:     a.updater.InstallRoot(),
			Mutating: a.updater.InFlight(),
		}
	}

	log.Debug("app ready",
		"project", remote.ProjectID,
		"workDir", workDir,
		"installDir", install.GetDir(),
		"source", install.GetSource(),
	)

	return a, nil
}

func (a *app) close() {
	_ = a.log.Close()
}

func newLoader() (*internalconfig.KoanfLoader, error) {
	loader, err := internalconfig.NewKoanfLoader()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create config loader")
	}

	if configPath != "" {
		loader = loader.WithConfigFile(configPath)
	}

	return loader, nil
}

func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	loader, err := newLoader()
	if err != nil {
		return nil, err
	}

	cfg, err := loader.Load(changedFlags(flags))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	return cfg, nil
}

func resolveWorkDir(install *config.InstallConfig) (string, error) {
	if install != nil && install.WorkDir != "" {
		return install.WorkDir, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get working directory")
	}

	return wd, nil
}

//nolint:ireturn // Nop or HTTP reporter depending on config
func newReporter(cfg *config.TelemetryConfig, log logger.Logger) telemetry.Reporter {
	if !cfg.IsEnabled() {
		return telemetry.Nop{}
	}

	return telemetry.NewHTTPReporter(cfg.BaseURL,
		telemetry.WithTimeout(cfg.GetTimeout()),
		telemetry.WithLogger(log),
	)
}

// newTransferClient returns a client for payload downloads. Archives can take
// minutes, so only connection setup and response headers are bounded.
func newTransferClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: dialTimeout}).DialContext
	transport.ResponseHeaderTimeout = responseHeaderTimeout

	return &http.Client{Transport: transport}
}

// sameHost reports whether both URLs point at the same host, so the API
// token may be forwarded to raw file requests.
func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil || ua.Host == "" {
		return false
	}

	ub, err := url.Parse(b)
	if err != nil {
		return false
	}

	return strings.EqualFold(ua.Host, ub.Host)
}
