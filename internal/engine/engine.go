package engine

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/exp/rand"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

// Engine is the signal bus: it records signal events, fans out derived
// signals through the registered rules, flags affected meetings, and runs
// hygiene triggers. Rules and the callout allow-list are explicit
// construction-time configuration, not process-wide registries.
type Engine struct {
	DB           *store.DB
	Embedder     Embedder
	rules        []Rule
	calloutTypes map[string]bool
	rand         rand.Source
}

// Options configures an Engine beyond its defaults.
type Options struct {
	Rules        []Rule   // defaults to DefaultRules()
	CalloutTypes []string // defaults to DefaultCalloutTypes()
	RandSeed     uint64   // 0 = global source
}

// New creates an Engine with the default rule set and callout allow-list.
func New(db *store.DB) *Engine {
	return NewWithOptions(db, Options{})
}

// NewWithOptions creates an Engine with explicit configuration.
func NewWithOptions(db *store.DB, opts Options) *Engine {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	types := opts.CalloutTypes
	if types == nil {
		types = DefaultCalloutTypes()
	}

	allow := make(map[string]bool, len(types))
	for _, t := range types {
		allow[t] = true
	}

	return &Engine{
		DB:           db,
		rules:        rules,
		calloutTypes: allow,
		rand:         newRandSource(opts.RandSeed),
	}
}

// SetEmbedder configures the embedding provider used for callout reranking.
func (e *Engine) SetEmbedder(emb Embedder) {
	e.Embedder = emb
}

// EmitSignal records a fact without propagation and returns the signal id.
// The decay half-life is seeded from the source's static prior.
func (e *Engine) EmitSignal(entityType, entityID, signalType, source, value string, confidence float64) (string, error) {
	return e.EmitSignalWithContext(entityType, entityID, signalType, source, value, confidence, "")
}

// EmitSignalWithContext records a fact with a short provenance string.
func (e *Engine) EmitSignalWithContext(entityType, entityID, signalType, source, value string, confidence float64, sourceContext string) (string, error) {
	sig := &store.SignalEvent{
		EntityType:    entityType,
		EntityID:      entityID,
		SignalType:    signalType,
		Source:        source,
		Value:         value,
		Confidence:    confidence,
		HalfLifeDays:  DefaultHalfLife(source),
		SourceContext: sourceContext,
	}
	if err := e.DB.InsertSignal(sig); err != nil {
		return "", fmt.Errorf("emit signal: %w", err)
	}
	return sig.ID, nil
}

// EmitAndPropagate records a fact and runs the full derivation pipeline:
// every registered rule is evaluated in registration order, derived signals
// are persisted with source "propagation", future meetings linked to the
// entity are flagged, and hygiene triggers run. Returns the new signal's id
// and the ids of every directly derived signal.
//
// Derived signals from one rule are not visible to other rules in the same
// pass; they only feed subsequent, separate emission calls.
func (e *Engine) EmitAndPropagate(entityType, entityID, signalType, source, value string, confidence float64, sourceContext string) (string, []string, error) {
	id, err := e.EmitSignalWithContext(entityType, entityID, signalType, source, value, confidence, sourceContext)
	if err != nil {
		return "", nil, err
	}

	sig, err := e.DB.GetSignal(id)
	if err != nil || sig == nil {
		return id, nil, fmt.Errorf("reload signal %s: %w", id, err)
	}

	var derivedIDs []string
	for _, rule := range e.rules {
		derived := rule.Apply(e.DB, sig)
		for _, d := range derived {
			out := &store.SignalEvent{
				EntityType:    d.EntityType,
				EntityID:      d.EntityID,
				SignalType:    d.SignalType,
				Source:        SourcePropagation,
				Value:         d.Value,
				Confidence:    d.Confidence,
				HalfLifeDays:  DefaultHalfLife(SourcePropagation),
				SourceContext: fmt.Sprintf("rule:%s signal:%s", rule.Name, sig.ID),
			}
			if err := e.DB.InsertSignal(out); err != nil {
				// One failed insert must not block the remaining fan-out.
				log.Printf("propagation: persist %s from %s: %v", d.SignalType, rule.Name, err)
				continue
			}
			derivedIDs = append(derivedIDs, out.ID)
		}
	}

	e.flagLinkedMeetings(sig)
	e.runHygiene(sig)

	return id, derivedIDs, nil
}

// Supersede soft-invalidates oldID by pointing it at newID.
func (e *Engine) Supersede(oldID, newID string) error {
	return e.DB.SupersedeSignal(oldID, newID)
}

// flagLinkedMeetings marks every future, non-archived meeting linked to the
// signal's entity as having new signals. Runs whether or not any rule fired.
func (e *Engine) flagLinkedMeetings(sig *store.SignalEvent) {
	now := time.Now().UnixMilli()
	meetings, err := e.DB.FutureMeetingsForEntity(sig.EntityType, sig.EntityID, now)
	if err != nil {
		log.Printf("flag meetings for %s/%s: %v", sig.EntityType, sig.EntityID, err)
		return
	}
	for _, m := range meetings {
		if err := e.DB.FlagMeetingSignals(m.ID); err != nil {
			log.Printf("flag meeting %s: %v", m.ID, err)
		}
	}
}
