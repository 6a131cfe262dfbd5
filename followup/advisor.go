// ABOUTME: Follow-up advisor that drafts nudges for opportunities that went quiet
// ABOUTME: Completion failures degrade to empty drafts; opportunity status is never changed
package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/completion"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/models"
	"golang.org/x/time/rate"
)

// DraftSchema is the structured output every follow-up completion must match.
var DraftSchema = completion.MustSchema("follow_up_draft", `{
	"type": "object",
	"properties": {
		"subject": {"type": "string", "minLength": 1, "maxLength": 200},
		"body": {"type": "string", "minLength": 1, "maxLength": 4000}
	},
	"required": ["subject", "body"],
	"additionalProperties": false
}`)

const systemPrompt = `You help a B2B seller keep warm introductions moving.
Write one short, friendly follow-up message. Reference the relationship, stay under 120 words,
and propose a single concrete next step. Reply with JSON containing "subject" and "body".`

type Store interface {
	ListStaleOpportunities(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]models.Opportunity, error)
	SaveFollowUpDraft(ctx context.Context, draft *models.FollowUpDraft) error
}

type Options struct {
	Timeout   time.Duration
	AfterDays int
	// RPS bounds completion calls across one run.
	RPS    float64
	Logger *logger.Logger
	Now    func() time.Time
}

type Advisor struct {
	store     Store
	completer completion.Completer
	timeout   time.Duration
	afterDays int
	limiter   *rate.Limiter
	log       *logger.Logger
	now       func() time.Time
}

// NewAdvisor builds an advisor. A nil completer yields empty drafts only.
func NewAdvisor(store Store, completer completion.Completer, opts Options) *Advisor {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.AfterDays < 1 {
		opts.AfterDays = 7
	}
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Advisor{
		store:     store,
		completer: completer,
		timeout:   opts.Timeout,
		afterDays: opts.AfterDays,
		limiter:   rate.NewLimiter(rate.Limit(opts.RPS), 1),
		log:       opts.Logger,
		now:       opts.Now,
	}
}

// GenerateFollowUps drafts a follow-up for one opportunity. It never fails:
// timeouts, service errors and invalid responses all give an empty draft.
func (a *Advisor) GenerateFollowUps(ctx context.Context, opp models.Opportunity, daysWaiting int) models.FollowUpDraft {
	draft := models.FollowUpDraft{UserID: opp.UserID, OpportunityID: opp.ID, DaysWaiting: daysWaiting}
	if a.completer == nil {
		return draft
	}

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.completer.Complete(cctx, systemPrompt, userPrompt(opp, daysWaiting), DraftSchema)
	if err != nil {
		a.log.Warn("follow-up completion failed", "opportunity_id", opp.ID.String(), "error", err)
		return draft
	}

	subject := strings.TrimSpace(completion.String(out, "subject"))
	body := strings.TrimSpace(completion.String(out, "body"))
	if subject == "" || body == "" {
		a.log.Warn("follow-up completion was blank", "opportunity_id", opp.ID.String())
		return draft
	}
	draft.Subject = subject
	draft.Body = body
	return draft
}

func userPrompt(opp models.Opportunity, daysWaiting int) string {
	var b strings.Builder
	target := opp.TargetName
	if target == "" {
		target = "the target company"
	}
	fmt.Fprintf(&b, "Target company: %s\n", target)
	fmt.Fprintf(&b, "Opportunity type: %s\n", opp.Type)
	fmt.Fprintf(&b, "Current stage: %s\n", opp.Status)
	fmt.Fprintf(&b, "Days without progress: %d\n", daysWaiting)
	if opp.ContactName != "" {
		fmt.Fprintf(&b, "Write to: %s\n", opp.ContactName)
	}
	if opp.Rationale != "" {
		fmt.Fprintf(&b, "Why this opportunity exists: %s\n", opp.Rationale)
	}
	return b.String()
}

type Result struct {
	Considered int `json:"considered"`
	Drafted    int `json:"drafted"`
	Empty      int `json:"empty"`
}

func (r Result) String() string {
	return fmt.Sprintf("considered=%d drafted=%d empty=%d", r.Considered, r.Drafted, r.Empty)
}

// RunStale drafts follow-ups for every opportunity that has sat in a worked
// stage longer than the configured delay and stores the non-empty ones.
func (a *Advisor) RunStale(ctx context.Context, userID uuid.UUID) (Result, error) {
	var result Result
	log := a.log.With("user_id", userID.String(), "stage", models.StageFollowUp)

	now := a.now().UTC()
	cutoff := now.AddDate(0, 0, -a.afterDays)
	stale, err := a.store.ListStaleOpportunities(ctx, userID, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to list stale opportunities: %w", err)
	}

	for _, opp := range stale {
		if err := a.limiter.Wait(ctx); err != nil {
			return result, err
		}
		result.Considered++

		days := int(now.Sub(opp.StatusChangedAt).Hours() / 24)
		draft := a.GenerateFollowUps(ctx, opp, days)
		if draft.IsEmpty() {
			result.Empty++
			continue
		}
		if err := a.store.SaveFollowUpDraft(ctx, &draft); err != nil {
			log.Warn("failed to save follow-up draft", "opportunity_id", opp.ID.String(), "error", err)
			result.Empty++
			continue
		}
		result.Drafted++
	}

	log.Info("follow-ups drafted", "considered", result.Considered, "drafted", result.Drafted, "empty", result.Empty)
	return result, nil
}
