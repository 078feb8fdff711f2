package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"bagger/internal/api"
	"bagger/internal/apperror"
	"bagger/internal/bagger"
	"bagger/internal/config"
	"bagger/internal/encryption"
	"bagger/internal/export"
	"bagger/internal/model"
	"bagger/internal/storage"
)

var _ bagger.Backend = (*api.Client)(nil)

// ErrNotLoggedIn is returned by operations that need a signed-in user.
var ErrNotLoggedIn = errors.New("not logged in: run `bagger login`")

// Options tunes NewBaggerApp. The zero value is the CLI default.
type Options struct {
	// StderrLevel is the lowest level echoed to stderr. Defaults to warn.
	StderrLevel *slog.Level
	// Clock overrides the wall clock.
	Clock bagger.Clock
}

// BaggerApp is the application layer between the CLI and the library core.
// It constructs all dependencies from config and owns their lifecycle.
type BaggerApp struct {
	cfg      *config.Config
	op       *Operation
	clock    bagger.Clock
	logger   bagger.Logger
	storage  bagger.Storage
	tokens   *bagger.TokenStore
	client   *api.Client
	session  *bagger.Session
	store    *bagger.DataStore
	exporter *bagger.Exporter
	logFile  *os.File
	closed   bool
}

// NewBaggerApp creates a fully wired BaggerApp from the given config.
// operation identifies the CLI command being run (e.g. "Sync", "Export").
// The caller must call Close when done.
func NewBaggerApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*BaggerApp, error) {
	clock := opts.Clock
	if clock == nil {
		clock = bagger.RealClock{}
	}
	stderrLevel := slog.LevelWarn
	if opts.StderrLevel != nil {
		stderrLevel = *opts.StderrLevel
	}

	timeout, err := cfg.HTTP.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	step, err := cfg.HTTP.RetryStepDuration()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Cache.TTLDuration()
	if err != nil {
		return nil, err
	}
	retry := api.RetryPolicy{Attempts: cfg.HTTP.Attempts(), Step: step}

	op := NewOperation(operation, clock.Now())
	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, stderrLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	st, err := storage.NewStorageFromConfig(cfg.Storage)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating storage: %w", err)
	}
	if enc != nil {
		st = storage.NewSealedStorage(st, enc, logger)
	}

	sink, err := export.NewSinkFromConfig(ctx, cfg.Export)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating export sink: %w", err)
	}

	tokens, err := bagger.NewTokenStore(st)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}

	client := api.NewClient(cfg.APIURL,
		api.WithTimeout(timeout),
		api.WithTokenSource(tokens),
		api.WithLogger(logger),
	)
	session := bagger.NewSession(client, tokens, clock, logger, retry)
	store := bagger.NewDataStore(client, st, clock, logger, ttl, retry)

	// Logging out, or any 401, drops the user's cached library.
	session.OnReset(store.Forget)
	client.OnUnauthorized(session.ForceLogout)

	logger.Debug("operation started", "operation", operation, "api_url", cfg.APIURL,
		"storage", cfg.Storage.Type, "export", cfg.Export.Type)

	return &BaggerApp{
		cfg:      cfg,
		op:       op,
		clock:    clock,
		logger:   logger,
		storage:  st,
		tokens:   tokens,
		client:   client,
		session:  session,
		store:    store,
		exporter: bagger.NewExporter(sink, clock, logger),
		logFile:  logFile,
	}, nil
}

func (a *BaggerApp) Config() *config.Config     { return a.cfg }
func (a *BaggerApp) Operation() *Operation      { return a.op }
func (a *BaggerApp) Session() *bagger.Session   { return a.session }
func (a *BaggerApp) Store() *bagger.DataStore   { return a.store }
func (a *BaggerApp) Exporter() *bagger.Exporter { return a.exporter }

// Start restores the session from the stored token and, when signed in,
// opens the user's library.
func (a *BaggerApp) Start(ctx context.Context) error {
	if err := a.StartSession(ctx); err != nil {
		return err
	}
	return a.openLibrary(ctx)
}

// StartSession restores the session without loading the library.
func (a *BaggerApp) StartSession(ctx context.Context) error {
	return a.session.Start(ctx)
}

// Login signs in and opens the library.
func (a *BaggerApp) Login(ctx context.Context, email, password string) (*model.User, error) {
	if err := a.session.Login(ctx, email, password); err != nil {
		return nil, err
	}
	if err := a.openLibrary(ctx); err != nil {
		return nil, err
	}
	return a.session.User(), nil
}

// Signup creates an account, signs in and opens the library.
func (a *BaggerApp) Signup(ctx context.Context, name, email, password string) (*model.User, error) {
	if err := a.session.Signup(ctx, name, email, password); err != nil {
		return nil, err
	}
	if err := a.openLibrary(ctx); err != nil {
		return nil, err
	}
	return a.session.User(), nil
}

// Logout signs out and drops the cached library.
func (a *BaggerApp) Logout() {
	a.session.Logout()
}

// RequireUser returns the signed-in user or ErrNotLoggedIn.
func (a *BaggerApp) RequireUser() (*model.User, error) {
	if u := a.session.User(); u != nil {
		return u, nil
	}
	return nil, ErrNotLoggedIn
}

// Sync refetches the library regardless of cache age.
func (a *BaggerApp) Sync(ctx context.Context) error {
	if _, err := a.RequireUser(); err != nil {
		return err
	}
	return a.store.Refresh(ctx)
}

// Export writes the current library to the export sink and returns where.
// With verify set the written export is read back and checked.
func (a *BaggerApp) Export(ctx context.Context, name string, verify bool) (string, error) {
	if _, err := a.RequireUser(); err != nil {
		return "", err
	}
	if name == "" {
		name = bagger.ExportName(a.clock.Now())
	}
	snap := a.store.Snapshot()
	loc, err := a.exporter.Export(ctx, snap, name)
	if err != nil {
		return "", err
	}
	if verify {
		if err := a.exporter.Verify(ctx, snap, name); err != nil {
			return "", err
		}
	}
	return loc, nil
}

// CheckStorage verifies local storage is at the latest schema version.
func (a *BaggerApp) CheckStorage() error {
	return storage.CheckSchema(a.storage)
}

func (a *BaggerApp) openLibrary(ctx context.Context) error {
	u := a.session.User()
	if u == nil {
		return nil
	}
	return a.store.Open(ctx, u.ID)
}

// IsSessionExpired reports whether err means the user has to log in again.
func IsSessionExpired(err error) bool {
	return errors.Is(err, apperror.ErrUnauthorized)
}

// Close waits for background work, then releases storage and the log file.
func (a *BaggerApp) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.store.Wait()

	var firstErr error
	if err := a.storage.Close(); err != nil {
		firstErr = fmt.Errorf("closing storage: %w", err)
	}

	a.logger.Debug("operation finished", "operation", a.op.Name,
		"elapsed", a.op.Elapsed(a.clock.Now()).Truncate(time.Millisecond))

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
