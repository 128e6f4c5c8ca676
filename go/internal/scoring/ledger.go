package scoring

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/models"
)

// CategoryTable supplies the category buckets a format scores into.
// rules.Registry satisfies it.
type CategoryTable interface {
	CategoryTable(format models.Format) map[models.Category]int
}

// Sink receives copies of records after every successful apply.
type Sink interface {
	Submit(records []models.ScoreRecord)
}

// Entry is one additive change to a score record.
type Entry struct {
	Scope      models.Scope
	Subject    models.Subject
	Format     models.Format
	Round      int
	Points     int
	Categories map[models.Category]int
	Counters   models.Counters
}

type recordKey struct {
	scope   models.Scope
	subject models.Subject
	format  models.Format
}

func (k recordKey) less(o recordKey) bool {
	if k.scope != o.scope {
		return k.scope.String() < o.scope.String()
	}
	if k.subject != o.subject {
		return k.subject.String() < o.subject.String()
	}
	return k.format < o.format
}

type entry struct {
	mu     sync.Mutex
	record models.ScoreRecord
}

// Ledger holds running totals keyed by (scope, subject, format). The map lock
// only guards lookup and insert; each record has its own lock, so updates to
// the same subject from different rooms serialize on the record.
type Ledger struct {
	mu      sync.Mutex
	entries map[recordKey]*entry

	tables CategoryTable
	clock  clockwork.Clock
	sink   Sink
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used for UpdatedAt.
func WithClock(c clockwork.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithSink forwards applied records, e.g. to a Persister.
func WithSink(s Sink) Option {
	return func(l *Ledger) { l.sink = s }
}

// NewLedger creates an empty ledger. tables may be nil when no format scores
// by category.
func NewLedger(tables CategoryTable, opts ...Option) *Ledger {
	l := &Ledger{
		entries: make(map[recordKey]*entry),
		tables:  tables,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordIndividual adds points for a person.
func (l *Ledger) RecordIndividual(scope models.Scope, id string, format models.Format, round, points int, categories map[models.Category]int) (models.ScoreRecord, error) {
	return l.recordOne(Entry{Scope: scope, Subject: models.Individual(id), Format: format, Round: round, Points: points, Categories: categories})
}

// RecordTeam adds points for a team.
func (l *Ledger) RecordTeam(scope models.Scope, id string, format models.Format, round, points int, categories map[models.Category]int) (models.ScoreRecord, error) {
	return l.recordOne(Entry{Scope: scope, Subject: models.Team(id), Format: format, Round: round, Points: points, Categories: categories})
}

func (l *Ledger) recordOne(e Entry) (models.ScoreRecord, error) {
	out, err := l.RecordAll(e)
	if err != nil {
		return models.ScoreRecord{}, err
	}
	return out[0], nil
}

// RecordAll applies every entry or none. All category keys are validated
// before any record is touched. Records are locked in key order so
// concurrent multi-entry calls cannot deadlock. The returned snapshots are
// in the order of entries.
func (l *Ledger) RecordAll(entries ...Entry) ([]models.ScoreRecord, error) {
	for _, e := range entries {
		if err := l.validate(e); err != nil {
			return nil, err
		}
	}

	keys := make([]recordKey, len(entries))
	byKey := make(map[recordKey]*entry, len(entries))
	for i, e := range entries {
		keys[i] = recordKey{scope: e.Scope, subject: e.Subject, format: e.Format}
		byKey[keys[i]] = l.entryFor(keys[i])
	}

	order := make([]recordKey, 0, len(byKey))
	for k := range byKey {
		order = append(order, k)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].less(order[j]) })
	for _, k := range order {
		byKey[k].mu.Lock()
	}

	now := l.clock.Now()
	for i, e := range entries {
		apply(&byKey[keys[i]].record, e, now)
	}
	out := make([]models.ScoreRecord, len(entries))
	for i := range entries {
		out[i] = byKey[keys[i]].record.Clone()
	}

	for _, k := range order {
		byKey[k].mu.Unlock()
	}

	if l.sink != nil {
		l.sink.Submit(out)
	}
	return out, nil
}

func (l *Ledger) validate(e Entry) error {
	return l.ValidateCategories(e.Format, e.Categories)
}

// ValidateCategories rejects any key that is not an enumerated category or is
// missing from the format's table.
func (l *Ledger) ValidateCategories(format models.Format, categories map[models.Category]int) error {
	if len(categories) == 0 {
		return nil
	}
	var table map[models.Category]int
	if l.tables != nil {
		table = l.tables.CategoryTable(format)
	}
	for c := range categories {
		if !c.Valid() {
			return &CategoryError{Category: c, Format: format}
		}
		if _, ok := table[c]; !ok {
			return &CategoryError{Category: c, Format: format}
		}
	}
	return nil
}

func apply(r *models.ScoreRecord, e Entry, now time.Time) {
	if r.RoundTotals == nil {
		r.RoundTotals = make(map[int]int)
	}
	r.RoundTotals[e.Round] += e.Points
	r.Cumulative += e.Points
	for c, v := range e.Categories {
		if r.Categories == nil {
			r.Categories = make(map[models.Category]int)
		}
		r.Categories[c] += v
	}
	r.Counters = r.Counters.Add(e.Counters)
	r.UpdatedAt = now
}

func (l *Ledger) entryFor(k recordKey) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if en, ok := l.entries[k]; ok {
		return en
	}
	en := &entry{record: models.ScoreRecord{
		Scope:       k.scope,
		Subject:     k.subject,
		Format:      k.format,
		RoundTotals: make(map[int]int),
	}}
	l.entries[k] = en
	return en
}

func (l *Ledger) lookup(k recordKey) (*entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	en, ok := l.entries[k]
	return en, ok
}

// Get returns a copy of a record. The second value is false when the subject
// has never scored in that scope.
func (l *Ledger) Get(scope models.Scope, subject models.Subject, format models.Format) (models.ScoreRecord, bool) {
	en, ok := l.lookup(recordKey{scope: scope, subject: subject, format: format})
	if !ok {
		return models.ScoreRecord{}, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.record.Clone(), true
}

// Standings returns one record per subject, zero-valued for subjects that have
// not scored, sorted by cumulative total descending then subject.
func (l *Ledger) Standings(scope models.Scope, format models.Format, subjects []models.Subject) []models.ScoreRecord {
	out := make([]models.ScoreRecord, 0, len(subjects))
	for _, s := range subjects {
		rec, ok := l.Get(scope, s, format)
		if !ok {
			rec = models.ScoreRecord{Scope: scope, Subject: s, Format: format, RoundTotals: map[int]int{}}
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cumulative != out[j].Cumulative {
			return out[i].Cumulative > out[j].Cumulative
		}
		return out[i].Subject.String() < out[j].Subject.String()
	})
	return out
}

// Restore seeds records loaded from storage. Existing records are replaced.
func (l *Ledger) Restore(records []models.ScoreRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		k := recordKey{scope: r.Scope, subject: r.Subject, format: r.Format}
		l.entries[k] = &entry{record: r.Clone()}
	}
}
