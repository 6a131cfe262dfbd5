// ABOUTME: Batch trigger for the per-account pipeline stages
// ABOUTME: Serialises stages per account with a lock and records every run in the ledger
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/followup"
	"github.com/harperreed/introengine/inference"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/models"
	"github.com/harperreed/introengine/outbound"
	"github.com/harperreed/introengine/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/harperreed/introengine/pipeline"

type IntroStage interface {
	RecalculateIntroOpportunities(ctx context.Context, userID uuid.UUID) (inference.Result, error)
}

type OutboundStage interface {
	AutoGenerateOutbound(ctx context.Context, userID uuid.UUID) (outbound.Result, error)
}

type ScoringStage interface {
	ScoreAll(ctx context.Context, userID uuid.UUID) (scoring.Result, error)
}

type FollowUpStage interface {
	RunStale(ctx context.Context, userID uuid.UUID) (followup.Result, error)
}

// Stages bundles the engines a Runner drives.
type Stages struct {
	Inference IntroStage
	Outbound  OutboundStage
	Scoring   ScoringStage
	FollowUps FollowUpStage
}

// RunStore is the run ledger.
type RunStore interface {
	RecordRun(ctx context.Context, userID uuid.UUID, stage, status string) (*models.PipelineRun, error)
	FinishRun(ctx context.Context, run *models.PipelineRun, status, summary string, runErr error) error
}

type Runner struct {
	stages  Stages
	runs    RunStore
	locker  AccountLocker
	lockTTL time.Duration
	log     *logger.Logger
}

func NewRunner(stages Stages, runs RunStore, locker AccountLocker, lockTTL time.Duration, log *logger.Logger) *Runner {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{stages: stages, runs: runs, locker: locker, lockTTL: lockTTL, log: log}
}

// AccountResult is the outcome of a full run.
type AccountResult struct {
	Inference inference.Result `json:"inference"`
	Outbound  outbound.Result  `json:"outbound"`
	Scoring   scoring.Result   `json:"scoring"`
}

func (r AccountResult) String() string {
	return fmt.Sprintf("inference[%s] outbound[%s] scoring[%s]", r.Inference, r.Outbound, r.Scoring)
}

func (r *Runner) RunInference(ctx context.Context, userID uuid.UUID) (inference.Result, error) {
	var res inference.Result
	err := r.run(ctx, userID, models.StageInference, func(ctx context.Context) (string, error) {
		var err error
		res, err = r.stages.Inference.RecalculateIntroOpportunities(ctx, userID)
		return res.String(), err
	})
	return res, err
}

func (r *Runner) RunOutbound(ctx context.Context, userID uuid.UUID) (outbound.Result, error) {
	var res outbound.Result
	err := r.run(ctx, userID, models.StageOutbound, func(ctx context.Context) (string, error) {
		var err error
		res, err = r.stages.Outbound.AutoGenerateOutbound(ctx, userID)
		return res.String(), err
	})
	return res, err
}

func (r *Runner) RunScoring(ctx context.Context, userID uuid.UUID) (scoring.Result, error) {
	var res scoring.Result
	err := r.run(ctx, userID, models.StageScoring, func(ctx context.Context) (string, error) {
		var err error
		res, err = r.stages.Scoring.ScoreAll(ctx, userID)
		return res.String(), err
	})
	return res, err
}

func (r *Runner) RunFollowUps(ctx context.Context, userID uuid.UUID) (followup.Result, error) {
	var res followup.Result
	err := r.run(ctx, userID, models.StageFollowUp, func(ctx context.Context) (string, error) {
		var err error
		res, err = r.stages.FollowUps.RunStale(ctx, userID)
		return res.String(), err
	})
	return res, err
}

// RunAccount runs inference, outbound and scoring in order under one lock.
// The first failing stage stops the run.
func (r *Runner) RunAccount(ctx context.Context, userID uuid.UUID) (AccountResult, error) {
	var res AccountResult
	err := r.run(ctx, userID, models.StageFull, func(ctx context.Context) (string, error) {
		var err error
		if res.Inference, err = r.stages.Inference.RecalculateIntroOpportunities(ctx, userID); err != nil {
			return res.String(), fmt.Errorf("inference: %w", err)
		}
		if res.Outbound, err = r.stages.Outbound.AutoGenerateOutbound(ctx, userID); err != nil {
			return res.String(), fmt.Errorf("outbound: %w", err)
		}
		if res.Scoring, err = r.stages.Scoring.ScoreAll(ctx, userID); err != nil {
			return res.String(), fmt.Errorf("scoring: %w", err)
		}
		return res.String(), nil
	})
	return res, err
}

func (r *Runner) run(ctx context.Context, userID uuid.UUID, stage string, fn func(context.Context) (string, error)) error {
	log := r.log.With("user_id", userID.String(), "stage", stage)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline."+stage)
	span.SetAttributes(attribute.String("introengine.user_id", userID.String()))
	defer span.End()

	release, err := r.locker.Acquire(ctx, userID, r.lockTTL)
	if errors.Is(err, ErrAccountBusy) {
		log.Info("run rejected, account busy")
		span.SetStatus(codes.Error, "account busy")
		if _, recErr := r.runs.RecordRun(ctx, userID, stage, models.RunStatusRejected); recErr != nil {
			log.Warn("failed to record rejected run", "error", recErr)
		}
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	defer release()

	run, err := r.runs.RecordRun(ctx, userID, stage, models.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	span.SetAttributes(attribute.String("introengine.run_id", run.ID))

	start := time.Now()
	summary, runErr := fn(ctx)
	status := models.RunStatusSucceeded
	if runErr != nil {
		status = models.RunStatusFailed
		log.Warn("run failed", "error", runErr, "elapsed", time.Since(start))
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	} else {
		log.Info("run finished", "summary", summary, "elapsed", time.Since(start))
	}

	// The ledger is closed even when ctx was cancelled mid-run.
	if err := r.runs.FinishRun(context.WithoutCancel(ctx), run, status, summary, runErr); err != nil {
		log.Warn("failed to finish run", "run_id", run.ID, "error", err)
	}
	return runErr
}
