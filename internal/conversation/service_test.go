package conversation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scam-honeypot/internal/classify"
	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/observability/metrics"
	"github.com/wolfman30/scam-honeypot/internal/persona"
	"github.com/wolfman30/scam-honeypot/internal/policy"
	"github.com/wolfman30/scam-honeypot/internal/report"
	"github.com/wolfman30/scam-honeypot/internal/state"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu      sync.Mutex
	records []report.Record
	err     error
}

func (s *recordingSink) Deliver(_ context.Context, rec report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func judge(conf float64, category models.Category) classify.Classifier {
	return classify.Func(func(context.Context, classify.Input) (classify.Judgment, error) {
		return classify.Judgment{IsScam: conf >= 0.5, RawConfidence: conf, Category: category}, nil
	})
}

func replyWith(text string, end bool) persona.Engager {
	return persona.EngagerFunc(func(_ context.Context, req persona.Request) (persona.Reply, error) {
		return persona.Reply{Text: text, Emotion: persona.EmotionFor(req.Confidence), ShouldEnd: end, Tier: "stub"}, nil
	})
}

type fixture struct {
	svc   *Service
	store *state.MemoryStore
	sink  *recordingSink
	clock *fixedClock
}

func newFixture(t *testing.T, deps Deps) *fixture {
	t.Helper()
	f := &fixture{
		store: state.NewMemoryStore(),
		sink:  &recordingSink{},
		clock: &fixedClock{now: t0},
	}
	if deps.Store == nil {
		deps.Store = f.store
	}
	if deps.Policy == nil {
		engine, err := policy.New(policy.DefaultConfig())
		require.NoError(t, err)
		deps.Policy = engine
	}
	if deps.Engager == nil {
		deps.Engager = replyWith("Oh no, what should I do?", false)
	}
	deps.Sink = f.sink
	deps.Logger = logging.Discard()
	deps.Metrics = metrics.NewHoneypotMetrics(prometheus.NewRegistry())
	deps.Clock = f.clock.Now
	svc, err := NewService(deps, Config{ClassifyTimeout: time.Second, PersonaTimeout: time.Second})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func scammer(text string) models.Message {
	return models.Message{Sender: models.SenderScammer, Text: text, Timestamp: t0}
}

func seed(t *testing.T, store state.Store, id string, mutate func(*state.State)) {
	t.Helper()
	st := state.New(id, t0)
	mutate(st)
	require.NoError(t, store.Save(context.Background(), st))
}

func TestScenarioBlockedAccountBecomesCautious(t *testing.T) {
	f := newFixture(t, Deps{Classifier: judge(0.72, models.CategoryBankImpersonation)})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "s1",
		Message:   scammer("Your bank account will be blocked today. Verify immediately."),
	})
	require.NoError(t, err)

	assert.True(t, resp.ScamDetected)
	require.NotNil(t, resp.ScamType)
	assert.Equal(t, "bank_impersonation", *resp.ScamType)
	require.NotNil(t, resp.Confidence)
	assert.InDelta(t, 0.72, *resp.Confidence, 1e-9)
	require.NotNil(t, resp.AgentResponse)
	assert.Equal(t, report.StatusSuccess, resp.Status)

	st, err := f.store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, state.ModeCautious, st.Mode)
	assert.Equal(t, 1, st.TurnCount)
	assert.Equal(t, 1, st.RepliesSent)
	assert.Equal(t, 2, resp.EngagementMetrics.TotalMessagesExchanged)
}

func TestScenarioLotteryJumpsToAggressive(t *testing.T) {
	var classified atomic.Int32
	classifier := classify.Func(func(context.Context, classify.Input) (classify.Judgment, error) {
		classified.Add(1)
		return classify.Judgment{}, errors.New("should not be called")
	})
	f := newFixture(t, Deps{Classifier: classifier})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "s2",
		Message:   scammer("Congratulations! You won ₹50 lakhs in the lucky draw. Send ₹5000 processing fee to claim."),
	})
	require.NoError(t, err)

	assert.Zero(t, classified.Load(), "obvious scams skip the classifier")
	require.NotNil(t, resp.ScamType)
	assert.Equal(t, "lottery_reward", *resp.ScamType)
	require.NotNil(t, resp.Confidence)
	assert.Equal(t, 1.0, *resp.Confidence)

	st, err := f.store.Load(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, state.ModeAggressive, st.Mode)
	assert.Contains(t, resp.ExtractedIntelligence.Other, report.LabelledValue{Label: "amount_mentioned", Value: "INR 5000"})
}

func TestScenarioSingleUPIExtracted(t *testing.T) {
	f := newFixture(t, Deps{Classifier: judge(0.7, models.CategoryOther)})
	seed(t, f.store, "s3", func(st *state.State) {
		st.Mode = state.ModeCautious
		st.Confidence = 0.7
		st.Observed = true
		st.EngagedAt = t0
		st.TurnCount = 2
	})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "s3",
		Message:   scammer("you can use scammer@paytm for the payment"),
	})
	require.NoError(t, err)

	st, err := f.store.Load(context.Background(), "s3")
	require.NoError(t, err)
	require.Equal(t, 1, st.Intelligence.Len())
	assert.Equal(t, models.KindUPIID, st.Intelligence.Items[0].Kind)
	assert.Equal(t, "scammer@paytm", st.Intelligence.Items[0].Value)
	assert.Equal(t, []string{"scammer@paytm"}, resp.ExtractedIntelligence.UPIIDs)
	assert.Empty(t, resp.ExtractedIntelligence.Emails)
	assert.Equal(t, state.ModeCautious, st.Mode)
}

func TestScenarioTenthCautiousMessageTerminates(t *testing.T) {
	var personaCalls atomic.Int32
	engager := persona.EngagerFunc(func(context.Context, persona.Request) (persona.Reply, error) {
		personaCalls.Add(1)
		return persona.Reply{Text: "hello?"}, nil
	})
	f := newFixture(t, Deps{Classifier: judge(0.65, models.CategoryOther), Engager: engager})
	seed(t, f.store, "s4", func(st *state.State) {
		st.Mode = state.ModeCautious
		st.Confidence = 0.65
		st.Observed = true
		st.EngagedAt = t0
		st.TurnCount = 9
	})
	f.clock.Advance(2 * time.Minute)

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "s4",
		Message:   scammer("Are you there? Reply fast"),
	})
	require.NoError(t, err)

	st, err := f.store.Load(context.Background(), "s4")
	require.NoError(t, err)
	assert.Equal(t, state.ModeTerminated, st.Mode)
	assert.Equal(t, state.ExitMaxTurns, st.ExitReason)
	assert.Equal(t, 10, st.TurnCount)
	assert.Nil(t, resp.AgentResponse)
	assert.Zero(t, personaCalls.Load())
	assert.Equal(t, int64(120), resp.EngagementMetrics.EngagementDurationSeconds)
	assert.Contains(t, resp.AgentNotes, "Exit: MAX_TURNS")

	require.Equal(t, 1, f.sink.Len())
	assert.Equal(t, "MAX_TURNS", f.sink.records[0].ExitReason)
}

func TestBenignMessageStaysMonitoring(t *testing.T) {
	var personaCalls atomic.Int32
	engager := persona.EngagerFunc(func(context.Context, persona.Request) (persona.Reply, error) {
		personaCalls.Add(1)
		return persona.Reply{Text: "hi"}, nil
	})
	f := newFixture(t, Deps{Classifier: judge(0.9, models.CategoryOther), Engager: engager})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		Message: scammer("Thanks, I will check with my bank branch tomorrow."),
	})
	require.NoError(t, err)

	assert.False(t, resp.ScamDetected)
	assert.Nil(t, resp.ScamType)
	assert.Nil(t, resp.AgentResponse)
	assert.Zero(t, personaCalls.Load())
	assert.Equal(t, report.EngagementMetrics{}, resp.EngagementMetrics)
	assert.Empty(t, resp.ExtractedIntelligence.BankNames)
	assert.Empty(t, resp.ExtractedIntelligence.Other)

	st, err := f.store.Load(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, state.ModeMonitoring, st.Mode)
	assert.Equal(t, 0, st.Intelligence.Len())
}

func TestTerminatedConversationIsFrozen(t *testing.T) {
	f := newFixture(t, Deps{Classifier: judge(0.99, models.CategoryOther)})
	seed(t, f.store, "done", func(st *state.State) {
		st.Mode = state.ModeTerminated
		st.ExitReason = state.ExitStale
		st.Confidence = 0.9
		st.Observed = true
		st.EngagedAt = t0
		st.TurnCount = 6
	})
	before, err := f.store.Load(context.Background(), "done")
	require.NoError(t, err)

	var first *report.Response
	for i := 0; i < 3; i++ {
		resp, err := f.svc.ProcessMessage(context.Background(), Request{
			SessionID: "done",
			Message:   scammer("Send 5000 to 123456789012 now"),
		})
		require.NoError(t, err)
		if first == nil {
			first = resp
		}
		assert.Equal(t, first, resp)
	}

	after, err := f.store.Load(context.Background(), "done")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Nil(t, first.AgentResponse)
	assert.Zero(t, f.sink.Len(), "already-final conversations are not re-reported")
}

func TestClassifierFailureDegrades(t *testing.T) {
	failing := classify.Func(func(context.Context, classify.Input) (classify.Judgment, error) {
		return classify.Judgment{}, classify.ErrAdapterFailure
	})
	f := newFixture(t, Deps{Classifier: failing})
	seed(t, f.store, "deg", func(st *state.State) {
		st.Mode = state.ModeCautious
		st.Confidence = 0.7
		st.Observed = true
		st.EngagedAt = t0
	})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "deg",
		Message:   scammer("Hello sir, did you do the needful?"),
	})
	require.NoError(t, err)
	assert.Equal(t, report.StatusDegraded, resp.Status)
	require.NotNil(t, resp.Confidence)
	assert.Equal(t, 0.7, *resp.Confidence)
	assert.Contains(t, resp.AgentNotes, "Degraded: classifier unavailable")

	st, err := f.store.Load(context.Background(), "deg")
	require.NoError(t, err)
	assert.Equal(t, 1, st.DegradedTurns)
	assert.Equal(t, state.ModeCautious, st.Mode)
}

func TestClassifierTimeoutDegrades(t *testing.T) {
	slow := classify.Func(func(ctx context.Context, _ classify.Input) (classify.Judgment, error) {
		<-ctx.Done()
		return classify.Judgment{}, ctx.Err()
	})
	f := newFixture(t, Deps{})
	svc, err := NewService(Deps{
		Store:      f.store,
		Policy:     f.svc.policy,
		Classifier: slow,
		Logger:     logging.Discard(),
	}, Config{ClassifyTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	resp, err := svc.ProcessMessage(context.Background(), Request{
		SessionID: "slow",
		Message:   scammer("Hello, is this Ramesh?"),
	})
	require.NoError(t, err)
	assert.Equal(t, report.StatusDegraded, resp.Status)
	assert.Nil(t, resp.Confidence, "nothing was observed yet")
}

func TestDisclosureRiskTerminatesWithoutReply(t *testing.T) {
	f := newFixture(t, Deps{
		Classifier: judge(0.7, models.CategoryOther),
		Engager:    replyWith("I know this is a scam, I reported you to the cyber cell.", false),
	})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "leak",
		Message:   scammer("Your account will be blocked, verify now"),
	})
	require.NoError(t, err)
	assert.Nil(t, resp.AgentResponse)

	st, err := f.store.Load(context.Background(), "leak")
	require.NoError(t, err)
	assert.Equal(t, state.ExitDisclosureRisk, st.ExitReason)
	assert.Equal(t, 0, st.RepliesSent)
	assert.Equal(t, 1, f.sink.Len())
}

func TestPersonaEndKeepsGoodbye(t *testing.T) {
	f := newFixture(t, Deps{
		Classifier: judge(0.7, models.CategoryOther),
		Engager:    replyWith("My son is here now, I have to go.", true),
	})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "bye",
		Message:   scammer("Your account will be blocked, verify now"),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.AgentResponse)
	assert.Equal(t, "My son is here now, I have to go.", *resp.AgentResponse)

	st, err := f.store.Load(context.Background(), "bye")
	require.NoError(t, err)
	assert.Equal(t, state.ExitPersonaEnded, st.ExitReason)
}

func TestScammerDisengagementEnds(t *testing.T) {
	f := newFixture(t, Deps{Classifier: judge(0.2, models.CategoryNone)})
	seed(t, f.store, "gone", func(st *state.State) {
		st.Mode = state.ModeCautious
		st.Confidence = 0.7
		st.Observed = true
		st.EngagedAt = t0
	})

	_, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "gone",
		Message:   scammer("Are you a bot? Stop messaging me"),
	})
	require.NoError(t, err)

	st, err := f.store.Load(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, state.ExitScammerDisengaged, st.ExitReason)
}

func TestPressurePhraseKeepsEngaging(t *testing.T) {
	f := newFixture(t, Deps{Classifier: judge(0.72, models.CategoryBankImpersonation)})
	seed(t, f.store, "pressure", func(st *state.State) {
		st.Mode = state.ModeCautious
		st.Confidence = 0.7
		st.Observed = true
		st.EngagedAt = t0
		st.TurnCount = 2
	})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "pressure",
		Message:   scammer("Stop wasting my time. Pay the fee to scammer@paytm right now or your account is blocked."),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.AgentResponse)
	assert.Equal(t, []string{"scammer@paytm"}, resp.ExtractedIntelligence.UPIIDs)

	st, err := f.store.Load(context.Background(), "pressure")
	require.NoError(t, err)
	assert.NotEqual(t, state.ModeTerminated, st.Mode)
	assert.Empty(t, st.ExitReason)
	assert.Zero(t, f.sink.Len())
}

func TestAcknowledgementDoesNotDropAccount(t *testing.T) {
	f := newFixture(t, Deps{Classifier: judge(0.7, models.CategoryOther)})
	seed(t, f.store, "ack", func(st *state.State) {
		st.Mode = state.ModeCautious
		st.Confidence = 0.7
		st.Observed = true
		st.EngagedAt = t0
	})

	resp, err := f.svc.ProcessMessage(context.Background(), Request{
		SessionID: "ack",
		Message:   scammer("Ok sir. Account number 50100123456789, IFSC HDFC0001234"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"50100123456789"}, resp.ExtractedIntelligence.BankAccounts)
	assert.Equal(t, []string{"HDFC0001234"}, resp.ExtractedIntelligence.IFSCCodes)
}

func TestIntelligenceDedupAcrossTurns(t *testing.T) {
	f := newFixture(t, Deps{Classifier: judge(0.7, models.CategoryOther)})
	seed(t, f.store, "dup", func(st *state.State) {
		st.Mode = state.ModeCautious
		st.Confidence = 0.7
		st.Observed = true
		st.EngagedAt = t0
	})

	for _, text := range []string{
		"Account number: 1234 5678 9012",
		"deposit in 123456789012 today",
	} {
		_, err := f.svc.ProcessMessage(context.Background(), Request{SessionID: "dup", Message: scammer(text)})
		require.NoError(t, err)
	}

	st, err := f.store.Load(context.Background(), "dup")
	require.NoError(t, err)
	accounts := st.Intelligence.ByKind(models.KindBankAccount)
	require.Len(t, accounts, 1)
	assert.Equal(t, "1234 5678 9012", accounts[0].RawValue)
	assert.Equal(t, 1, st.TurnsSinceNewInfo)
}

type conflictingStore struct {
	*state.MemoryStore
	failures int
	saves    int
}

func (s *conflictingStore) Save(ctx context.Context, st *state.State) error {
	s.saves++
	if s.saves <= s.failures {
		return state.ErrStateConflict
	}
	return s.MemoryStore.Save(ctx, st)
}

func TestConflictRetriedOnce(t *testing.T) {
	store := &conflictingStore{MemoryStore: state.NewMemoryStore(), failures: 1}
	f := newFixture(t, Deps{Store: store, Classifier: judge(0.7, models.CategoryOther)})

	_, err := f.svc.ProcessMessage(context.Background(), Request{SessionID: "c1", Message: scammer("Your account will be blocked")})
	require.NoError(t, err)
	assert.Equal(t, 2, store.saves)

	st, err := store.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.MessagesSeen, "the failed attempt left nothing behind")
}

func TestConflictSurfacesAfterRetry(t *testing.T) {
	store := &conflictingStore{MemoryStore: state.NewMemoryStore(), failures: 5}
	f := newFixture(t, Deps{Store: store, Classifier: judge(0.7, models.CategoryOther)})

	_, err := f.svc.ProcessMessage(context.Background(), Request{SessionID: "c2", Message: scammer("Your account will be blocked")})
	require.ErrorIs(t, err, state.ErrStateConflict)
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, 0, store.Len())
}

func TestValidationErrorMutatesNothing(t *testing.T) {
	f := newFixture(t, Deps{Classifier: judge(0.7, models.CategoryOther)})

	tests := []struct {
		name string
		req  Request
	}{
		{"blank text", Request{Message: models.Message{Sender: models.SenderScammer, Text: "   "}}},
		{"missing sender", Request{Message: models.Message{Text: "hi"}}},
		{"bad sender", Request{Message: models.Message{Sender: "bank", Text: "hi"}}},
		{"bad history entry", Request{
			Message:             scammer("hi"),
			ConversationHistory: []models.Message{{Sender: models.SenderUser}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ProcessMessage(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
	assert.Equal(t, 0, f.store.Len())
}

func TestCancelledContextCommitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engager := persona.EngagerFunc(func(context.Context, persona.Request) (persona.Reply, error) {
		cancel()
		return persona.Reply{Text: "ok"}, nil
	})
	f := newFixture(t, Deps{Classifier: judge(0.7, models.CategoryOther), Engager: engager})

	_, err := f.svc.ProcessMessage(ctx, Request{SessionID: "x", Message: scammer("Your account will be blocked")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.store.Len())
}

func TestConversationIDDerivation(t *testing.T) {
	first := scammer("Your account will be blocked")
	a := ConversationID(Request{Message: first})
	b := ConversationID(Request{
		Message:             scammer("send the money"),
		ConversationHistory: []models.Message{first, {Sender: models.SenderUser, Text: "what?"}},
	})
	assert.Equal(t, a, b, "history replays keep the same identity")
	assert.Len(t, a, 64)
	assert.Equal(t, "given", ConversationID(Request{SessionID: " given ", Message: first}))
	assert.NotEqual(t, a, ConversationID(Request{Message: scammer("something else")}))
}

func TestSameConversationIsSerialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	engager := persona.EngagerFunc(func(context.Context, persona.Request) (persona.Reply, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return persona.Reply{Text: "what do I do?"}, nil
	})
	cfg := policy.DefaultConfig()
	cfg.StaleTurns = 0
	engine, err := policy.New(cfg)
	require.NoError(t, err)
	f := newFixture(t, Deps{Classifier: judge(0.7, models.CategoryOther), Engager: engager, Policy: engine})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ProcessMessage(context.Background(), Request{SessionID: "same", Message: scammer("Your account will be blocked")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	st, err := f.store.Load(context.Background(), "same")
	require.NoError(t, err)
	assert.Equal(t, 8, st.MessagesSeen)
	assert.Equal(t, 8, st.TurnCount)
}

func TestSinkFailureDoesNotFailTurn(t *testing.T) {
	f := newFixture(t, Deps{
		Classifier: judge(0.7, models.CategoryOther),
		Engager:    replyWith("bye now", true),
	})
	f.sink.err = errors.New("callback down")

	resp, err := f.svc.ProcessMessage(context.Background(), Request{SessionID: "sinkfail", Message: scammer("Your account will be blocked")})
	require.NoError(t, err)
	assert.NotNil(t, resp.AgentResponse)
	assert.Equal(t, 1, f.sink.Len())
}
