// Package conversation runs one honeypot turn end to end: it serializes
// work per conversation, consults the pre-filter and classifier, advances
// the engagement policy, extracts intelligence, asks the persona for a
// reply and commits the new state before rendering the response.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/scam-honeypot/internal/classify"
	"github.com/wolfman30/scam-honeypot/internal/extraction"
	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/observability/metrics"
	"github.com/wolfman30/scam-honeypot/internal/patterns"
	"github.com/wolfman30/scam-honeypot/internal/persona"
	"github.com/wolfman30/scam-honeypot/internal/policy"
	"github.com/wolfman30/scam-honeypot/internal/prefilter"
	"github.com/wolfman30/scam-honeypot/internal/report"
	"github.com/wolfman30/scam-honeypot/internal/state"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

var tracer = otel.Tracer("scam-honeypot/internal/conversation")

// Config bounds the external calls made during a turn.
type Config struct {
	// ClassifyTimeout is the hard cap after which the classifier counts as degraded.
	ClassifyTimeout time.Duration
	// ClassifyTarget is the latency target; slower answers are still used but logged.
	ClassifyTarget time.Duration
	PersonaTimeout time.Duration
	SinkTimeout    time.Duration
}

// Deps are the collaborators of a Service. Store and Policy are required.
type Deps struct {
	Store      state.Store
	Locker     state.Locker
	Patterns   *patterns.Library
	Classifier classify.Classifier
	Policy     *policy.Engine
	Extractor  *extraction.Engine
	Engager    persona.Engager
	Sink       report.Sink
	Metrics    *metrics.HoneypotMetrics
	Events     *EventLogger
	Logger     *logging.Logger
	Clock      func() time.Time
}

// Service processes honeypot messages.
type Service struct {
	store      state.Store
	locker     state.Locker
	lib        *patterns.Library
	filter     *prefilter.Filter
	classifier classify.Classifier
	policy     *policy.Engine
	extractor  *extraction.Engine
	engager    persona.Engager
	sink       report.Sink
	metrics    *metrics.HoneypotMetrics
	events     *EventLogger
	logger     *logging.Logger
	now        func() time.Time
	cfg        Config
}

// NewService wires a Service, filling optional collaborators with in-process defaults.
func NewService(deps Deps, cfg Config) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("conversation: state store is required")
	}
	if deps.Policy == nil {
		return nil, errors.New("conversation: policy engine is required")
	}
	s := &Service{
		store:   deps.Store,
		locker:  deps.Locker,
		lib:     deps.Patterns,
		policy:  deps.Policy,
		engager: deps.Engager,
		sink:    deps.Sink,
		metrics: deps.Metrics,
		events:  deps.Events,
		logger:  deps.Logger,
		now:     deps.Clock,
		cfg:     cfg,
	}
	if s.lib == nil {
		s.lib = patterns.Default()
	}
	if s.locker == nil {
		s.locker = state.NewKeyedMutex()
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.engager == nil {
		s.engager = persona.EngagerFunc(cannedEngager)
	}
	if s.cfg.SinkTimeout <= 0 {
		s.cfg.SinkTimeout = 10 * time.Second
	}
	s.filter = prefilter.New(s.lib)
	s.extractor = deps.Extractor
	if s.extractor == nil {
		s.extractor = extraction.New(s.lib, extraction.WithLogger(s.logger))
	}
	if deps.Classifier != nil {
		s.classifier = classify.WithTimeout(deps.Classifier, cfg.ClassifyTimeout)
	}
	return s, nil
}

func cannedEngager(_ context.Context, req persona.Request) (persona.Reply, error) {
	return persona.Reply{
		Text:    persona.CannedReply(req.Turn),
		Emotion: persona.EmotionFor(req.Confidence),
		Tier:    "canned",
		Canned:  true,
	}, nil
}

// ProcessMessage handles one incoming message. Calls for the same
// conversation are serialized; a version conflict on save is retried once.
func (s *Service) ProcessMessage(ctx context.Context, req Request) (*report.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := ConversationID(req)

	ctx, span := tracer.Start(ctx, "conversation.process_message")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", id))

	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: lock %s: %w", id, err)
	}
	defer unlock()

	s.events.MessageReceived(ctx, id, req.Message.Sender, req.Message.Text, len(req.ConversationHistory))

	var resp *report.Response
	for attempt := 0; attempt < 2; attempt++ {
		resp, err = s.processLocked(ctx, id, req)
		if !errors.Is(err, state.ErrStateConflict) {
			break
		}
		s.metrics.ObserveConflict()
		s.logger.Warn("state conflict, retrying turn", "conversation_id", id, "attempt", attempt+1)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

// turn carries the working values of one processLocked call.
type turn struct {
	id       string
	req      Request
	now      time.Time
	work     *state.State
	pre      prefilter.Result
	decision policy.Decision
	reply    persona.Reply
	replied  bool
	added    []models.IntelItem
	extras   []string
}

func (s *Service) processLocked(ctx context.Context, id string, req Request) (*report.Response, error) {
	start := s.now()
	current, err := s.store.Load(ctx, id)
	switch {
	case errors.Is(err, state.ErrNotFound):
		current = state.New(id, start)
	case err != nil:
		return nil, fmt.Errorf("conversation: load %s: %w", id, err)
	}

	if current.Terminated() {
		d := s.policy.Advance(current, policy.Observation{Now: start})
		s.metrics.ObserveTurn(string(d.Mode), s.now().Sub(start))
		resp := report.Assemble(report.Input{State: current, Persona: personaLabel(current)})
		return &resp, nil
	}

	t := &turn{id: id, req: req, now: start, work: current.Clone()}
	fromMode := t.work.Mode

	obs, err := s.observe(ctx, t)
	if err != nil {
		return nil, err
	}
	t.decision = s.policy.Advance(t.work, obs)
	if t.decision.Upgraded {
		s.events.ModeChanged(ctx, id, string(fromMode), string(t.work.Mode), t.work.Confidence)
	}

	if t.decision.Engaged {
		if err := s.engage(ctx, t); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversation: turn abandoned: %w", err)
	}
	if err := s.store.Save(ctx, t.work); err != nil {
		return nil, fmt.Errorf("conversation: save %s: %w", id, err)
	}

	s.metrics.ObserveTurn(string(t.work.Mode), s.now().Sub(start))
	var replyText string
	if t.replied {
		replyText = t.reply.Text
	}
	resp := report.Assemble(report.Input{
		State:    t.work,
		Reply:    replyText,
		Degraded: t.decision.Degraded,
		Persona:  personaLabel(t.work),
		Notes:    t.extras,
	})

	if t.work.Terminated() {
		s.finish(ctx, t.work, resp)
	}
	return &resp, nil
}

// observe runs the pre-filter and, for uncertain messages, the classifier.
func (s *Service) observe(ctx context.Context, t *turn) (policy.Observation, error) {
	text := t.req.Message.Text
	t.pre = s.filter.Evaluate(text)
	s.metrics.ObserveVerdict(string(t.pre.Verdict))
	s.events.Prefiltered(ctx, t.id, string(t.pre.Verdict), t.pre.Category, t.pre.Signals)

	obs := policy.Observation{
		Verdict:  t.pre.Verdict,
		Category: t.pre.Category,
		Now:      t.now,
	}
	if t.pre.Verdict == prefilter.ObviousScam {
		t.work.AddTactics(t.pre.Signals...)
	}
	_, obs.Disengage = s.filter.Disengaged(text)

	if t.pre.Verdict != prefilter.Uncertain {
		return obs, nil
	}

	judgment, err := s.classify(ctx, t)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return obs, fmt.Errorf("conversation: classify: %w", ctxErr)
		}
		reason := "failure"
		if errors.Is(err, classify.ErrAdapterTimeout) {
			reason = "timeout"
		}
		s.metrics.ObserveDegraded("classifier", reason)
		s.events.ClassifierDegraded(ctx, t.id, err)
		s.logger.Warn("classifier degraded", "conversation_id", t.id, "error", err)
		obs.Degraded = true
		return obs, nil
	}
	obs.Judgment = &judgment
	return obs, nil
}

func (s *Service) classify(ctx context.Context, t *turn) (classify.Judgment, error) {
	if s.classifier == nil {
		return classify.Judgment{}, fmt.Errorf("%w: no classifier configured", classify.ErrAdapterFailure)
	}
	in := classify.Input{Text: t.req.Message.Text, History: t.req.ConversationHistory}
	if t.req.Metadata != nil {
		in.Metadata = *t.req.Metadata
	}
	start := s.now()
	j, err := s.classifier.Classify(ctx, in)
	elapsed := s.now().Sub(start)
	s.metrics.ObserveAdapterLatency("classifier", elapsed)
	if err == nil && s.cfg.ClassifyTarget > 0 && elapsed > s.cfg.ClassifyTarget {
		s.logger.Info("classifier over latency target",
			"conversation_id", t.id,
			"elapsed_ms", elapsed.Milliseconds(),
			"target_ms", s.cfg.ClassifyTarget.Milliseconds(),
		)
	}
	return j, err
}

// engage extracts intelligence and, unless the turn already ended the
// conversation, asks the persona for a reply. Both run concurrently.
func (s *Service) engage(ctx context.Context, t *turn) error {
	in := extraction.Input{
		Text:    t.req.Message.Text,
		History: t.req.ConversationHistory,
		Turn:    t.work.MessagesSeen,
		Verdict: t.pre.Verdict,
	}
	found := s.extractor.Patterns(in)

	wantReply := !t.decision.Terminal()
	var semantic extraction.Result
	g, gctx := errgroup.WithContext(ctx)
	if s.extractor.HasSemantic() {
		g.Go(func() error {
			start := s.now()
			semantic = s.extractor.Semantic(gctx, in)
			s.metrics.ObserveAdapterLatency("extractor", s.now().Sub(start))
			return nil
		})
	}
	if wantReply {
		known := t.work.Intelligence.Clone()
		known.Merge(found.Items)
		g.Go(func() error {
			reply, err := s.reply(gctx, t, known)
			if err != nil {
				return err
			}
			t.reply = reply
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("conversation: engage: %w", err)
	}

	found.Append(semantic)
	if found.SemanticErr != nil {
		s.metrics.ObserveDegraded("extractor", "failure")
	}
	for _, r := range found.Rejected {
		s.metrics.ObserveRejected(string(r.Kind), r.Reason)
		s.logger.Debug("candidate rejected",
			"conversation_id", t.id,
			"kind", r.Kind,
			"reason", r.Reason,
			"source", r.Source,
		)
	}
	t.added = t.work.Intelligence.Merge(found.Items)
	for _, item := range t.added {
		s.metrics.ObserveExtracted(string(item.Kind), 1)
	}
	s.events.IntelligenceExtracted(ctx, t.id, t.added)

	outcome := policy.Outcome{NewItems: len(t.added)}
	if wantReply {
		guard := persona.ScanDisclosure(t.reply.Text)
		if guard.Risk {
			s.metrics.ObserveDisclosure(guard.Blocked())
			s.events.DisclosureCaught(ctx, t.id, guard.Blocked(), guard.Reasons)
		}
		outcome.DisclosureRisk = guard.Blocked()
		outcome.PersonaEnded = t.reply.ShouldEnd
		t.reply.Text = guard.Sanitized
		t.replied = !guard.Blocked() && t.reply.Text != ""
		if t.reply.Canned {
			t.extras = append(t.extras, "Reply: canned fallback")
		}
	}
	t.decision = s.policy.Settle(t.work, t.decision, outcome)

	if t.replied {
		t.work.RepliesSent++
		t.work.LastReply = t.reply.Text
	}
	return nil
}

func (s *Service) reply(ctx context.Context, t *turn, known models.IntelSet) (persona.Reply, error) {
	pctx := ctx
	if s.cfg.PersonaTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, s.cfg.PersonaTimeout)
		defer cancel()
	}
	start := s.now()
	reply, err := s.engager.Reply(pctx, persona.Request{
		ConversationID: t.id,
		Text:           t.req.Message.Text,
		History:        t.req.ConversationHistory,
		Mode:           t.work.Mode,
		Category:       t.work.Category,
		Confidence:     t.work.Confidence,
		Turn:           t.work.TurnCount,
		Tactics:        t.work.Tactics,
		Known:          known,
	})
	s.metrics.ObserveAdapterLatency("persona", s.now().Sub(start))
	if err == nil {
		if reply.Canned {
			s.metrics.ObserveDegraded("persona", "failure")
		}
		return reply, nil
	}
	if ctx.Err() != nil {
		return persona.Reply{}, err
	}
	// The persona's own deadline passed; the turn carries on with a stock reply.
	s.metrics.ObserveDegraded("persona", "timeout")
	s.logger.Warn("persona timed out, using canned reply", "conversation_id", t.id, "error", err)
	return cannedEngager(ctx, persona.Request{Turn: t.work.TurnCount, Confidence: t.work.Confidence})
}

// finish records the exit and ships the final report. Delivery failures are
// logged; the committed state is not rolled back.
func (s *Service) finish(ctx context.Context, st *state.State, resp report.Response) {
	s.metrics.ObserveExit(string(st.ExitReason))
	s.events.ConversationTerminated(ctx, st.ID, string(st.ExitReason), st.TurnCount, st.Intelligence.Len())
	if s.sink == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SinkTimeout)
	defer cancel()
	err := s.sink.Deliver(sctx, report.NewRecord(st, resp, s.lib.Version(), s.now()))
	if err != nil {
		s.logger.Error("final report delivery failed", "conversation_id", st.ID, "error", err)
	}
	s.events.ReportDelivered(ctx, st.ID, err)
}

// Conversation returns the stored state for id.
func (s *Service) Conversation(ctx context.Context, id string) (*state.State, error) {
	return s.store.Load(ctx, id)
}

// personaLabel is the emotional state shown in notes for engaged conversations.
func personaLabel(st *state.State) string {
	if !st.EverEngaged() {
		return ""
	}
	return string(persona.EmotionFor(st.Confidence))
}
