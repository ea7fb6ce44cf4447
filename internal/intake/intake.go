// Package intake orchestrates the message pipeline: it takes decoded
// transport events and runs dedup, takeover gating, record extraction,
// registry lookups, rule interception and finally the dialogue backend,
// dispatching at most one reply per accepted message.
package intake

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valentimdigital/IADESPEDIDA/internal/dedup"
	"github.com/valentimdigital/IADESPEDIDA/internal/gemini"
	"github.com/valentimdigital/IADESPEDIDA/internal/metrics"
	"github.com/valentimdigital/IADESPEDIDA/internal/prompt"
	"github.com/valentimdigital/IADESPEDIDA/internal/record"
	"github.com/valentimdigital/IADESPEDIDA/internal/resolver"
	"github.com/valentimdigital/IADESPEDIDA/internal/rules"
	"github.com/valentimdigital/IADESPEDIDA/internal/takeover"
	"github.com/valentimdigital/IADESPEDIDA/internal/validate"
	"github.com/valentimdigital/IADESPEDIDA/internal/wire"
)

const (
	// recencyWindow drops events older than this at arrival, so a backlog
	// replayed by the transport bridge never triggers replies.
	recencyWindow = 2 * time.Minute

	// historyWindow is how many stored turns are sent to the backend.
	historyWindow = 40

	// minCompanyAgeMonths is the youngest company the sales flow accepts.
	minCompanyAgeMonths = 6
)

// Records is the persistence slice the pipeline needs.
type Records interface {
	GetRecord(ctx context.Context, conversationID string) (record.Record, error)
	SaveRecord(ctx context.Context, conversationID string, rec record.Record) error
	History(ctx context.Context, conversationID string, limit int) ([]record.Turn, error)
	AppendHistory(ctx context.Context, conversationID string, turns ...record.Turn) error
	TrackEvent(ctx context.Context, conversationID, kind string, detail map[string]any) error
}

// Dialogue is the generative backend.
type Dialogue interface {
	Generate(ctx context.Context, system string, history []gemini.Message, message string) (string, error)
}

// Sender dispatches replies through the transport bridge.
type Sender interface {
	SendText(ctx context.Context, conversationID, text string) error
	SendImage(ctx context.Context, conversationID, caption, imagePath string) error
}

// Lookup answers one registry kind (cnpj or cep).
type Lookup interface {
	Resolve(ctx context.Context, conversationID, key string) (resolver.Result, error)
}

type Pipeline struct {
	records  Records
	dialogue Dialogue
	sender   Sender
	cnpj     Lookup
	cep      Lookup
	seen     *dedup.Set
	locks    *takeover.Lock
	rules    *rules.Interceptor
	prompts  *prompt.Loader
	logger   *slog.Logger

	// mobileImagePath, when set, is attached to mobile-plan offers.
	mobileImagePath string

	now func() time.Time

	// One mutex per conversation keeps processing ordered without
	// serializing unrelated conversations. Entries are never evicted;
	// the map is bounded by the number of distinct conversations seen,
	// a few bytes each for the lifetime of the process.
	convMu sync.Mutex
	conv   map[string]*sync.Mutex
}

type Config struct {
	Records         Records
	Dialogue        Dialogue
	Sender          Sender
	CNPJLookup      Lookup
	CEPLookup       Lookup
	Dedup           *dedup.Set
	Locks           *takeover.Lock
	Rules           *rules.Interceptor
	Prompts         *prompt.Loader
	Logger          *slog.Logger
	MobileImagePath string
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		records:         cfg.Records,
		dialogue:        cfg.Dialogue,
		sender:          cfg.Sender,
		cnpj:            cfg.CNPJLookup,
		cep:             cfg.CEPLookup,
		seen:            cfg.Dedup,
		locks:           cfg.Locks,
		rules:           cfg.Rules,
		prompts:         cfg.Prompts,
		logger:          cfg.Logger,
		mobileImagePath: cfg.MobileImagePath,
		now:             time.Now,
		conv:            make(map[string]*sync.Mutex),
	}
}

// SetNowFunc overrides the clock. Tests only.
func (p *Pipeline) SetNowFunc(now func() time.Time) {
	p.now = now
}

func (p *Pipeline) lockConversation(id string) *sync.Mutex {
	p.convMu.Lock()
	mu, ok := p.conv[id]
	if !ok {
		mu = &sync.Mutex{}
		p.conv[id] = mu
	}
	p.convMu.Unlock()
	return mu
}

// canonicalID maps the secondary @lid identifier some events carry back to
// the canonical conversation ID.
func canonicalID(event wire.InboundEvent) string {
	if strings.HasSuffix(event.ConversationID, "@lid") && event.AltID != "" {
		return event.AltID
	}
	return event.ConversationID
}

// Process handles one transport event end to end. Safe for concurrent use;
// events of the same conversation are serialized.
func (p *Pipeline) Process(ctx context.Context, event wire.InboundEvent) {
	id := canonicalID(event)
	if id == "" {
		return
	}
	if strings.HasSuffix(id, "@lid") {
		p.logger.Warn("no canonical id for lid conversation, keeping as-is", "conversation", id)
	}
	log := p.logger.With("trace_id", uuid.NewString(), "conversation", id)

	// Operator traffic only drives the takeover state machine.
	if event.FromSelf {
		p.locks.HandleOutgoing(id, event.Text)
		if p.locks.IsActive(id) {
			metrics.TakeoverLocks.Inc()
		}
		return
	}

	// Events without a timestamp cannot be aged, so they are treated as
	// stale replays rather than risking a duplicate reply.
	if ts := event.Time(); ts.IsZero() || p.now().Sub(ts) > recencyWindow {
		metrics.MessagesDropped.WithLabelValues("stale").Inc()
		return
	}

	if event.Text == "" && !event.HasMedia {
		metrics.MessagesDropped.WithLabelValues("empty").Inc()
		return
	}

	// Claim the message before any side effect so a concurrent duplicate
	// can never produce a second reply.
	if event.MessageID != "" && !p.seen.Insert(id, event.MessageID) {
		metrics.MessagesDropped.WithLabelValues("duplicate").Inc()
		log.Debug("duplicate message dropped", "message_id", event.MessageID)
		return
	}

	if event.IsGroup && !strings.Contains(strings.ToLower(event.Text), "valentina") {
		metrics.MessagesDropped.WithLabelValues("unmentioned").Inc()
		return
	}

	mu := p.lockConversation(id)
	mu.Lock()
	defer mu.Unlock()

	metrics.MessagesReceived.Inc()
	p.handle(ctx, log, id, event)
}

func (p *Pipeline) handle(ctx context.Context, log *slog.Logger, id string, event wire.InboundEvent) {
	rec, err := p.records.GetRecord(ctx, id)
	if err != nil {
		log.Error("load record failed", "error", err)
		return
	}

	// Extract before anything else so data keeps accruing even while the
	// conversation is silenced.
	changed := rec.Merge(event.Text)

	if p.locks.IsActive(id) {
		metrics.MessagesDropped.WithLabelValues("locked").Inc()
		if changed {
			p.saveRecord(ctx, log, id, rec)
		}
		if event.Text != "" {
			p.appendHistory(ctx, log, id, record.Turn{Role: "user", Text: event.Text})
		}
		p.trackEvent(ctx, log, id, "silenced_ingest", nil)
		return
	}

	if event.HasMedia && event.Text == "" {
		p.reply(ctx, log, id, "", p.rules.MediaReply(&rec), "rule")
		return
	}

	if changed {
		p.saveRecord(ctx, log, id, rec)
	}

	// Valid CPF without a company document: the sales flow is B2B only.
	if validate.FirstCNPJ(event.Text) == "" && validate.FirstCPF(event.Text) != "" && rec.CNPJ == "" {
		p.reply(ctx, log, id, event.Text, p.rules.AskCNPJReply(), "rule")
		return
	}

	if cnpj := validate.FirstCNPJ(event.Text); cnpj != "" {
		p.handleCNPJ(ctx, log, id, event.Text, cnpj, &rec)
		return
	}

	if cep := validate.FirstCEP(event.Text); cep != "" && validate.FirstCPF(event.Text) == "" {
		p.handleCEP(ctx, log, id, event.Text, cep, &rec)
		return
	}

	if rules.IsDocumentsSent(event.Text) {
		p.reply(ctx, log, id, event.Text, p.rules.DocumentsReply(&rec), "rule")
		return
	}

	if rules.IsChecklistQuery(event.Text) {
		p.reply(ctx, log, id, event.Text, p.rules.ChecklistReply(&rec), "rule")
		return
	}

	if reply, kind, ok := p.rules.MatchObjection(event.Text, &rec); ok {
		metrics.ObjectionsHandled.WithLabelValues(kind).Inc()
		p.trackEvent(ctx, log, id, "objection_handled", map[string]any{"kind": kind})
		p.reply(ctx, log, id, event.Text, reply, "rule")
		return
	}

	history, err := p.records.History(ctx, id, historyWindow)
	if err != nil {
		log.Error("load history failed", "error", err)
		history = nil
	}

	// Recover fields a restart or missed extraction may have dropped.
	if rec.Reconcile(history) {
		p.saveRecord(ctx, log, id, rec)
	}

	if rules.IsOldConversation(history, event.Text) && !rec.IsEmpty() {
		p.trackEvent(ctx, log, id, "old_conversation_resumed", nil)
		p.reply(ctx, log, id, event.Text, rules.OldConversationReply(&rec), "rule")
		return
	}

	p.handleBackend(ctx, log, id, event, &rec, history)
}

func (p *Pipeline) handleCNPJ(ctx context.Context, log *slog.Logger, id, text, cnpj string, rec *record.Record) {
	res, err := p.cnpj.Resolve(ctx, id, cnpj)
	if err != nil {
		metrics.LookupFailures.WithLabelValues("cnpj").Inc()
		log.Warn("cnpj lookup failed", "error", err)
		p.reply(ctx, log, id, text, "Não consegui consultar esse CNPJ agora. Pode confirmar o número ou tentar novamente em instantes?", "rule")
		return
	}
	metrics.LookupsServed.WithLabelValues("cnpj", res.Source).Inc()
	p.trackEvent(ctx, log, id, "cnpj_lookup", map[string]any{"source": res.Source})

	if months, ok := resolver.CompanyAgeMonths(res.Fields, p.now()); ok && months < minCompanyAgeMonths {
		p.trackEvent(ctx, log, id, "young_company_refused", map[string]any{"months": months})
		p.reply(ctx, log, id, text, p.rules.YoungCompanyReply(), "rule")
		return
	}

	rec.ApplyCNPJLookup(cnpj, res.Fields)
	p.saveRecord(ctx, log, id, *rec)

	summary := resolver.FormatCNPJSummary(res.Fields, cnpj)
	reply := "Encontrei os dados da empresa:\n" + summary +
		"\n\nPara seguirmos, me confirma o CEP de instalação e quantas linhas você precisa?"
	p.reply(ctx, log, id, text, reply, "rule")
}

func (p *Pipeline) handleCEP(ctx context.Context, log *slog.Logger, id, text, cep string, rec *record.Record) {
	res, err := p.cep.Resolve(ctx, id, cep)
	if err != nil {
		metrics.LookupFailures.WithLabelValues("cep").Inc()
		log.Warn("cep lookup failed", "error", err)
		p.reply(ctx, log, id, text, "Não consegui validar esse CEP agora. Pode confirmar o número?", "rule")
		return
	}
	metrics.LookupsServed.WithLabelValues("cep", res.Source).Inc()
	p.trackEvent(ctx, log, id, "cep_lookup", map[string]any{"source": res.Source})

	rec.ApplyCEPLookup(cep, res.Fields)
	p.saveRecord(ctx, log, id, *rec)

	summary := resolver.FormatCEPSummary(res.Fields, cep)
	reply := "Endereço localizado:\n" + summary +
		"\n\nMe confirma o número e complemento para a instalação?"
	p.reply(ctx, log, id, text, reply, "rule")
}

func (p *Pipeline) handleBackend(ctx context.Context, log *slog.Logger, id string, event wire.InboundEvent, rec *record.Record, history []record.Turn) {
	base := p.prompts.Base(id, event.IsGroup)
	system := prompt.BuildSystemInstruction(base, rec)

	msgs := make([]gemini.Message, 0, len(history))
	for _, t := range history {
		msgs = append(msgs, gemini.Message{Role: t.Role, Text: t.Text})
	}

	answer, err := p.dialogue.Generate(ctx, system, msgs, event.Text)
	if err != nil {
		metrics.BackendErrors.Inc()
		log.Error("backend call failed", "error", err)
		return
	}
	if answer == "" {
		return
	}

	p.appendHistory(ctx, log, id,
		record.Turn{Role: "user", Text: event.Text},
		record.Turn{Role: "model", Text: answer},
	)

	switch prompt.ClassifyOffer(answer) {
	case prompt.OfferMobile:
		if p.mobileImagePath != "" {
			p.trackEvent(ctx, log, id, "mobile_plan_sent", map[string]any{"with_image": true})
			p.send(ctx, log, id, answer, "mobile_image")
			return
		}
		p.trackEvent(ctx, log, id, "mobile_plan_sent", map[string]any{"with_image": false})
		p.send(ctx, log, id, answer, "text")
	case prompt.OfferFiber:
		p.trackEvent(ctx, log, id, "fiber_plan_sent", nil)
		p.send(ctx, log, id, answer, "fiber_text")
	default:
		p.send(ctx, log, id, answer, "text")
	}
}

// reply sends a rule-generated answer and records the exchange in history.
// userText "" means the inbound carried no text (media only).
func (p *Pipeline) reply(ctx context.Context, log *slog.Logger, id, userText, answer, kind string) {
	var turns []record.Turn
	if userText != "" {
		turns = append(turns, record.Turn{Role: "user", Text: userText})
	}
	turns = append(turns, record.Turn{Role: "model", Text: answer})
	p.appendHistory(ctx, log, id, turns...)
	p.send(ctx, log, id, answer, kind)
}

func (p *Pipeline) send(ctx context.Context, log *slog.Logger, id, answer, kind string) {
	var err error
	if kind == "mobile_image" {
		err = p.sender.SendImage(ctx, id, answer, p.mobileImagePath)
	} else {
		err = p.sender.SendText(ctx, id, answer)
	}
	if err != nil {
		log.Error("send reply failed", "error", err)
		return
	}
	metrics.RepliesSent.WithLabelValues(kind).Inc()
}

func (p *Pipeline) saveRecord(ctx context.Context, log *slog.Logger, id string, rec record.Record) {
	if err := p.records.SaveRecord(ctx, id, rec); err != nil {
		log.Error("save record failed", "error", err)
	}
}

func (p *Pipeline) appendHistory(ctx context.Context, log *slog.Logger, id string, turns ...record.Turn) {
	if len(turns) == 0 {
		return
	}
	if err := p.records.AppendHistory(ctx, id, turns...); err != nil {
		log.Error("append history failed", "error", err)
	}
}

func (p *Pipeline) trackEvent(ctx context.Context, log *slog.Logger, id, kind string, detail map[string]any) {
	if err := p.records.TrackEvent(ctx, id, kind, detail); err != nil {
		log.Warn("track event failed", "kind", kind, "error", err)
	}
}
