package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cardoff/internal/cleanup"
	"cardoff/internal/collision"
	"cardoff/internal/config"
	"cardoff/internal/identify"
	"cardoff/internal/journal"
	"cardoff/internal/logging"
	"cardoff/internal/notifications"
	"cardoff/internal/profiles"
	"cardoff/internal/router"
	"cardoff/internal/scan"
	"cardoff/internal/services"
	"cardoff/internal/transfer"
	"cardoff/internal/verify"
)

// Stage names the pipeline states a run moves through.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageIdentifying       Stage = "identifying"
	StageCheckingCollision Stage = "checking-collision"
	StageRouting           Stage = "routing"
	StageTransferring      Stage = "transferring"
	StageVerifying         Stage = "verifying"
	StageCleaningUp        Stage = "cleaning-up"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// ErrAborted means the confirmation gate declined the run. Nothing was
// copied or deleted.
var ErrAborted = errors.New("import aborted at confirmation")

// Preview is shown to the confirmation gate before any byte moves.
type Preview struct {
	RunID      string
	Profile    string
	Confidence int
	Date       string
	Source     string
	Summary    scan.Summary
}

// Gate approves or declines a run after identification and collision
// checking, before routing. A nil gate auto-approves.
type Gate interface {
	Confirm(ctx context.Context, preview *Preview) (bool, error)
}

// Journal is the persistence surface the orchestrator records runs through.
type Journal interface {
	BeginRun(ctx context.Context, id, profile, source string) (*journal.Run, error)
	SetRoute(ctx context.Context, id, route, destination string) error
	CompleteRun(ctx context.Context, id string, files int, bytes int64) error
	FailRun(ctx context.Context, id, kind, message string) error
	RecordCleanup(ctx context.Context, runID string, records []journal.CleanupRecord) error
}

// Outcome is the terminal record of one run.
type Outcome struct {
	RunID       string
	Stage       Stage
	Profile     string
	Route       string
	Destination string
	Summary     scan.Summary
	Transfer    *transfer.Result
	Report      *verify.Report
	Cleanup     *cleanup.Result
	// CleanupWarning carries a non-fatal cleanup failure on an otherwise
	// successful run.
	CleanupWarning error
	Duration       time.Duration
}

// Orchestrator wires the stage components together and runs imports.
type Orchestrator struct {
	cfg        *config.Config
	profiles   []profiles.CameraProfile
	scanner    *scan.Scanner
	identifier *identify.Identifier
	detector   *collision.Detector
	router     *router.Router
	executor   *transfer.Executor
	verifier   *verify.Verifier
	cleaner    *cleanup.Controller
	journal    Journal
	notifier   notifications.Service
	gate       Gate
	logger     *slog.Logger

	// now and sleep are replaceable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an orchestrator from configuration and loaded camera profiles.
// The gate may be nil for unattended runs.
func New(cfg *config.Config, cams []profiles.CameraProfile, store Journal, notifier notifications.Service, gate Gate, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	scanner := scan.New(cfg.Transfer.DigestWorkers)
	return &Orchestrator{
		cfg:        cfg,
		profiles:   cams,
		scanner:    scanner,
		identifier: identify.New(cams, scanner, nil, cfg.Identify.SampleFiles, cfg.Identify.ConfidenceThreshold, logger),
		detector:   collision.New(logger),
		router:     router.New(cfg, logger),
		executor:   transfer.New(scanner, cfg.Transfer.PreserveTimestamps, logger),
		verifier:   verify.New(scanner, logger),
		cleaner:    cleanup.New(cfg.Cleanup.DeleteOriginals, store, logger),
		journal:    store,
		notifier:   notifier,
		gate:       gate,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Run imports one mounted card. The returned Outcome is populated as far as
// the run got; on error its Stage is StageFailed and the error carries the
// taxonomy marker for the stage that failed.
func (o *Orchestrator) Run(ctx context.Context, source string) (*Outcome, error) {
	runID := uuid.NewString()
	started := o.now()

	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithDevice(ctx, source)
	log := logging.WithContext(ctx, o.logger)

	outcome := &Outcome{RunID: runID, Stage: StageIdle}
	if _, err := o.journal.BeginRun(ctx, runID, "", source); err != nil {
		return outcome, services.Wrap(services.ErrConfiguration, "starting", "journal", "record run", err)
	}

	fail := func(stage Stage, err error) (*Outcome, error) {
		outcome.Stage = StageFailed
		outcome.Duration = o.now().Sub(started)
		kind := services.Kind(err)
		if errors.Is(err, ErrAborted) {
			kind = "Aborted"
		}
		log.Error("stage failed",
			logging.String(logging.FieldStage, string(stage)),
			logging.String(logging.FieldFailureKind, kind),
			logging.Error(err),
		)
		if jErr := o.journal.FailRun(ctx, runID, kind, err.Error()); jErr != nil {
			log.Warn("failed to journal run failure", logging.Error(jErr))
		}
		o.notifyFailure(ctx, outcome.Profile, kind, err, source)
		return outcome, err
	}

	// Identifying.
	o.enterStage(log, StageIdentifying, outcome)
	ident, err := o.identifier.Identify(services.WithStage(ctx, string(StageIdentifying)), source)
	if err != nil {
		return fail(StageIdentifying, err)
	}
	profile := ident.Profile
	outcome.Profile = profile.Name
	log = log.With(logging.String("profile", profile.Name))
	log.Info("camera identified", logging.Int("confidence", ident.Confidence))

	entries, err := o.scanner.Enumerate(ctx, source, profile.SourceTrees())
	if err != nil {
		return fail(StageIdentifying, services.Wrap(services.ErrTransfer, string(StageIdentifying), "enumerate", source, err))
	}
	outcome.Summary = scan.Summarize(entries)

	// CheckingCollision.
	o.enterStage(log, StageCheckingCollision, outcome)
	date := started.Format("20060102")
	guard, err := o.detector.Check(profile, date, o.cfg.Paths.StoreDir, o.cfg.Paths.StagingDir)
	if err != nil {
		return fail(StageCheckingCollision, err)
	}
	defer guard.Release()

	if o.gate != nil {
		preview := &Preview{
			RunID:      runID,
			Profile:    profile.Name,
			Confidence: ident.Confidence,
			Date:       date,
			Source:     source,
			Summary:    outcome.Summary,
		}
		approved, err := o.gate.Confirm(ctx, preview)
		if err != nil {
			return fail(StageCheckingCollision, services.Wrap(services.ErrConfiguration, string(StageCheckingCollision), "confirm", "", err))
		}
		if !approved {
			return fail(StageCheckingCollision, ErrAborted)
		}
	}

	// Routing.
	o.enterStage(log, StageRouting, outcome)
	decision, err := o.router.Decide(ctx, outcome.Summary.TotalBytes)
	if err != nil {
		return fail(StageRouting, err)
	}
	dstDir := profile.DestinationDir(decision.Root, date)
	outcome.Route = string(decision.Route)
	outcome.Destination = dstDir
	if err := o.journal.SetRoute(ctx, runID, string(decision.Route), dstDir); err != nil {
		log.Warn("failed to journal route", logging.Error(err))
	}

	// Transferring.
	o.enterStage(log, StageTransferring, outcome)
	o.notify(ctx, log, func(ctx context.Context) error {
		return o.notifier.NotifyRunStarted(ctx, profile.Name, outcome.Summary.Files, outcome.Summary.TotalBytes)
	})

	records, err := o.scanner.DigestEntries(services.WithStage(ctx, string(StageTransferring)), source, entries)
	if err != nil {
		return fail(StageTransferring, services.Wrap(services.ErrTransfer, string(StageTransferring), "digest source", source, err))
	}

	result, err := o.transferWithRetry(ctx, log, source, dstDir, entries, records)
	if err != nil {
		return fail(StageTransferring, err)
	}
	outcome.Transfer = result

	// Verifying. The source side is digested again here rather than reusing
	// the transfer-stage records, so a source file that changed under the
	// run cannot slip through as verified.
	o.enterStage(log, StageVerifying, outcome)
	verifyCtx := services.WithStage(ctx, string(StageVerifying))
	records, err = o.scanner.DigestEntries(verifyCtx, source, entries)
	if err != nil {
		return fail(StageVerifying, services.Wrap(services.ErrVerification, string(StageVerifying), "digest source", source, err))
	}
	report, err := o.verifier.Verify(verifyCtx, dstDir, profile.SourceTrees(), records)
	if err != nil {
		return fail(StageVerifying, err)
	}
	outcome.Report = report
	if !report.Passed() {
		return fail(StageVerifying, services.Wrap(services.ErrVerification, string(StageVerifying), "reconcile",
			fmt.Sprintf("%d of %d files failed verification", report.Failed, len(report.Files)), nil))
	}

	// CleaningUp. A cleanup failure downgrades to a warning: the data is
	// verified at the destination, only the card still holds originals.
	o.enterStage(log, StageCleaningUp, outcome)
	cleanupResult, cleanupErr := o.cleaner.Run(services.WithStage(ctx, string(StageCleaningUp)), runID, source, report, records)
	outcome.Cleanup = cleanupResult
	if cleanupErr != nil {
		outcome.CleanupWarning = cleanupErr
		log.Warn("cleanup incomplete", logging.Error(cleanupErr))
		failed := 0
		if cleanupResult != nil {
			failed = len(cleanupResult.Failures)
		}
		o.notify(ctx, log, func(ctx context.Context) error {
			return o.notifier.NotifyCleanupWarning(ctx, profile.Name, failed)
		})
	}

	// Done.
	outcome.Stage = StageDone
	outcome.Duration = o.now().Sub(started)
	if err := o.journal.CompleteRun(ctx, runID, outcome.Summary.Files, outcome.Summary.TotalBytes); err != nil {
		log.Warn("failed to journal completion", logging.Error(err))
	}
	o.notify(ctx, log, func(ctx context.Context) error {
		return o.notifier.NotifyRunCompleted(ctx, profile.Name, outcome.Route,
			outcome.Summary.Files, outcome.Summary.TotalBytes, outcome.Duration)
	})
	log.Info("import complete",
		logging.String("route", outcome.Route),
		logging.Int("files", outcome.Summary.Files),
		logging.Int64("bytes", outcome.Summary.TotalBytes),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}

// transferWithRetry runs transfer passes with exponential backoff. Only
// retryable failures are retried; the atomic copy plus digest-based skip
// makes every retry resume from where the last pass stopped.
func (o *Orchestrator) transferWithRetry(ctx context.Context, log *slog.Logger, source, dstDir string, entries []scan.Entry, records map[string]scan.FileRecord) (*transfer.Result, error) {
	attempts := o.cfg.Transfer.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(o.cfg.Transfer.RetryBackoff) * time.Second

	stageCtx := services.WithStage(ctx, string(StageTransferring))
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := o.executor.Run(stageCtx, source, dstDir, entries, records)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !services.Retryable(err) || attempt == attempts {
			break
		}
		log.Warn("transfer attempt failed, retrying",
			logging.Int("attempt", attempt),
			logging.Duration("backoff", backoff),
			logging.Error(err),
		)
		if sleepErr := o.sleep(ctx, backoff); sleepErr != nil {
			return nil, services.Wrap(services.ErrTransfer, string(StageTransferring), "retry", "run canceled", sleepErr)
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (o *Orchestrator) enterStage(log *slog.Logger, stage Stage, outcome *Outcome) {
	outcome.Stage = stage
	log.Info("stage started", logging.String(logging.FieldStage, string(stage)))
}

func (o *Orchestrator) notifyFailure(ctx context.Context, profile, kind string, err error, source string) {
	if errors.Is(err, services.ErrUnidentifiedCamera) {
		o.notify(ctx, o.logger, func(ctx context.Context) error {
			return o.notifier.NotifyUnidentifiedCard(ctx, source)
		})
		return
	}
	if errors.Is(err, ErrAborted) {
		return
	}
	o.notify(ctx, o.logger, func(ctx context.Context) error {
		return o.notifier.NotifyRunFailed(ctx, profile, kind, err.Error())
	})
}

// notify fires a notification best-effort against a background context so a
// canceled run still reports its failure.
func (o *Orchestrator) notify(ctx context.Context, log *slog.Logger, fn func(context.Context) error) {
	notifyCtx := ctx
	if notifyCtx.Err() != nil {
		notifyCtx = context.Background()
	}
	if err := fn(notifyCtx); err != nil {
		log.Warn("notification failed", logging.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
