package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/events"
	"github.com/mcdev12/quizbowl/go/internal/identity"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/rules"
	"github.com/mcdev12/quizbowl/go/internal/scoring"
	"github.com/rs/zerolog/log"
)

// TimerEventTossup is the countdown started with every question.
const TimerEventTossup = "tossup"

// timedRoundEvents only run in formats with a sixty-second or lightning round.
var timedRoundEvents = map[string]bool{"sixty_second": true, "lightning": true}

// HallOfFameScope accumulates scores across every room and tournament.
var HallOfFameScope = models.Scope{Kind: models.ScopeHallOfFame, ID: "global"}

// RoomConfig is fixed at room creation.
type RoomConfig struct {
	ID           string          `json:"id"`
	Format       models.Format   `json:"format"`
	Mode         models.PlayMode `json:"mode"`
	Tournament   bool            `json:"tournament"`
	TournamentID string          `json:"tournament_id,omitempty"`
}

// Participant is a joined user.
type Participant struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	TeamID string      `json:"team_id,omitempty"`
}

// Answer is a judged response to the held buzz.
type Answer struct {
	Subject    string
	Correct    bool
	Power      bool
	Categories map[models.Category]int
}

// Resolution is the outcome of ResolveAnswer in the room's own scope.
type Resolution struct {
	Subject      string              `json:"subject"`
	Result       string              `json:"result"`
	Points       int                 `json:"points"`
	Power        bool                `json:"power"`
	Individual   models.ScoreRecord  `json:"individual"`
	Team         *models.ScoreRecord `json:"team,omitempty"`
	LockoutUntil time.Time           `json:"lockout_until,omitzero"`
}

// RoundSummary is returned by EndRound.
type RoundSummary struct {
	Round     int  `json:"round"`
	NextRound int  `json:"next_round"`
	Tied      bool `json:"tied"`
}

// RoomState is a read-only view of a room.
type RoomState struct {
	Config       RoomConfig           `json:"config"`
	Round        int                  `json:"round"`
	Reveal       RevealState          `json:"reveal"`
	Buzz         BuzzState            `json:"buzz"`
	Timer        *TimerSnapshot       `json:"timer,omitempty"`
	Moderator    string               `json:"moderator,omitempty"`
	Participants []Participant        `json:"participants"`
	Standings    []models.ScoreRecord `json:"standings"`
}

type roomDeps struct {
	engine      *rules.Engine
	questions   []models.Question
	ledger      *scoring.Ledger
	directory   identity.Directory
	broadcaster Broadcaster
	clock       clockwork.Clock
	arbiter     ArbiterConfig
}

// Room is the aggregate for one live game. Its mutex serializes every
// command so buzz arbitration is linearizable per room.
type Room struct {
	mu sync.Mutex

	cfg         RoomConfig
	engine      *rules.Engine
	arbiter     *Arbiter
	packet      *PacketSession
	timer       *TimerService
	ledger      *scoring.Ledger
	monitor     TiebreakerMonitor
	directory   identity.Directory
	broadcaster Broadcaster

	round        int
	moderator    string
	participants map[string]Participant
	order        []string
}

func newRoom(cfg RoomConfig, deps roomDeps) *Room {
	if deps.broadcaster == nil {
		deps.broadcaster = discard{}
	}
	if deps.clock == nil {
		deps.clock = clockwork.NewRealClock()
	}
	r := &Room{
		cfg:          cfg,
		engine:       deps.engine,
		arbiter:      NewArbiter(deps.clock, deps.arbiter),
		packet:       NewPacketSession(deps.questions),
		ledger:       deps.ledger,
		monitor:      NewTiebreakerMonitor(deps.ledger),
		directory:    deps.directory,
		broadcaster:  deps.broadcaster,
		round:        1,
		participants: make(map[string]Participant),
	}
	r.timer = NewTimerService(deps.clock, cfg.ID, deps.broadcaster.Notify)
	return r
}

func (r *Room) ID() string { return r.cfg.ID }

func (r *Room) Config() RoomConfig { return r.cfg }

// Moderator returns the moderator's user id, empty when the seat is free.
func (r *Room) Moderator() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moderator
}

func (r *Room) notify(t events.NotificationType, data any) {
	r.broadcaster.Notify(events.Notification{Type: t, RoomID: r.cfg.ID, Data: data})
}

func (r *Room) notifyTo(target string, t events.NotificationType, data any) {
	r.broadcaster.Notify(events.Notification{Type: t, RoomID: r.cfg.ID, Target: target, Data: data})
}

func (r *Room) requireModerator(requestedBy string) error {
	if r.moderator == "" || requestedBy != r.moderator {
		return ErrNotAuthorized
	}
	return nil
}

// Join adds a participant. The first moderator claims the seat; later
// moderator requests join as players. Team membership comes from the
// directory, falling back to teamID.
func (r *Room) Join(ctx context.Context, userID string, role models.Role, teamID string) (Participant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Participant{}, ErrMissingSubject
	}
	if r.directory != nil {
		team, ok, err := r.directory.TeamOf(ctx, userID)
		if err != nil {
			return Participant{}, fmt.Errorf("resolve team for %s: %w", userID, err)
		}
		if ok {
			teamID = team
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := Participant{UserID: userID, Role: models.RolePlayer, TeamID: strings.TrimSpace(teamID)}
	if r.moderator == userID || (role == models.RoleModerator && r.moderator == "") {
		p.Role = models.RoleModerator
		p.TeamID = ""
	} else {
		if err := r.checkTeam(&p); err != nil {
			return Participant{}, err
		}
	}

	if p.Role == models.RoleModerator {
		r.moderator = userID
	}
	if _, exists := r.participants[userID]; !exists {
		r.order = append(r.order, userID)
	}
	r.participants[userID] = p

	log.Info().
		Str("room_id", r.cfg.ID).
		Str("user_id", userID).
		Str("role", string(p.Role)).
		Str("team_id", p.TeamID).
		Msg("participant joined")
	r.notifyPlayerList()
	return p, nil
}

func (r *Room) checkTeam(p *Participant) error {
	switch r.cfg.Mode {
	case models.PlayModePlayerVsPlayer:
		p.TeamID = ""
		return nil
	case models.PlayModeTeamVsTeam:
		if p.TeamID == "" {
			return ErrNoTeam
		}
	}
	if p.TeamID == "" {
		return nil
	}
	limit := r.engine.MaxActivePlayers()
	if limit <= 0 {
		return nil
	}
	members := 0
	for id, other := range r.participants {
		if id != p.UserID && other.Role == models.RolePlayer && other.TeamID == p.TeamID {
			members++
		}
	}
	if members >= limit {
		return ErrTeamFull
	}
	return nil
}

// Leave removes a participant and releases any buzz they hold.
func (r *Room) Leave(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[userID]; !ok {
		return ErrNotJoined
	}
	delete(r.participants, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.moderator == userID {
		r.moderator = ""
	}
	r.arbiter.Release(userID)

	log.Info().Str("room_id", r.cfg.ID).Str("user_id", userID).Msg("participant left")
	r.notifyPlayerList()
	return nil
}

func (r *Room) participantList() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.participants[id])
	}
	return out
}

func (r *Room) notifyPlayerList() {
	players := make([]events.PlayerInfo, 0, len(r.order))
	for _, p := range r.participantList() {
		players = append(players, events.PlayerInfo{UserID: p.UserID, TeamID: p.TeamID})
	}
	r.notify(events.PlayerList, events.PlayerListPayload{Players: players, Moderator: r.moderator})
}

// StartQuestion presents the current question (the first if none yet), clears
// any held buzz and starts the tossup countdown. An active lockout is kept.
func (r *Room) StartQuestion(requestedBy string) (RevealState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireModerator(requestedBy); err != nil {
		return RevealState{}, err
	}
	if r.packet.Len() == 0 {
		return RevealState{}, ErrNoQuestionsLoaded
	}

	r.timer.Cancel()
	r.arbiter.ClearBuzz()
	index, _ := r.packet.Cursor()
	if index < 0 {
		index = 0
	}
	state, err := r.packet.SetCurrentQuestion(index)
	if err != nil {
		return RevealState{}, err
	}
	r.announceQuestion(state)
	r.timer.Start(TimerEventTossup, r.engine.TimerSeconds(TimerEventTossup))

	log.Debug().Str("room_id", r.cfg.ID).Int("question_index", state.QuestionIndex).Msg("question started")
	return state, nil
}

func (r *Room) announceQuestion(state RevealState) {
	q, _ := r.packet.Current()
	text := ""
	if q.Kind == models.QuestionKindFlat {
		text = q.Text
	}
	r.notify(events.QuestionStarted, events.QuestionStartedPayload{
		QuestionID:   q.ID,
		QuestionText: text,
		Index:        state.QuestionIndex,
		Total:        r.packet.Len(),
	})
	r.notifyReveal(state)
}

func (r *Room) notifyReveal(state RevealState) {
	r.notify(events.RevealState, events.RevealStatePayload{
		RevealedCount: state.RevealedCount,
		TotalClues:    state.TotalClues,
		Text:          state.Text,
	})
}

// Buzz claims the right to answer. A locked-out participant is told the
// remaining time privately.
func (r *Room) Buzz(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		return ErrNotJoined
	}
	if p.Role == models.RoleModerator {
		return ErrModeratorCannotBuzz
	}
	if r.packet.Phase() == PhaseIdle {
		return ErrNoActiveQuestion
	}

	if err := r.arbiter.Buzz(userID); err != nil {
		var locked *LockedOutError
		if errors.As(err, &locked) {
			r.notifyTo(userID, events.LockoutActive, events.LockoutActivePayload{
				RemainingSeconds: math.Round(locked.Remaining.Seconds()*10) / 10,
			})
		}
		return err
	}

	log.Debug().Str("room_id", r.cfg.ID).Str("subject", userID).Msg("buzz accepted")
	r.notify(events.BuzzLocked, events.BuzzLockedPayload{Subject: userID})
	return nil
}

// ResolveAnswer scores the held buzz. The ledger is updated for the
// individual and their team in every scope the room feeds before the buzz is
// released, so a rejected category leaves the room unchanged.
func (r *Room) ResolveAnswer(a Answer) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.arbiter.Check(a.Subject); err != nil {
		return Resolution{}, err
	}
	p := r.participants[a.Subject]

	if err := r.ledger.ValidateCategories(r.cfg.Format, a.Categories); err != nil {
		return Resolution{}, err
	}

	res := Resolution{Subject: a.Subject}
	var counters models.Counters
	var categories map[models.Category]int
	if a.Correct {
		res.Power = a.Power && r.engine.SupportsPower()
		res.Points = r.engine.PointsForTossup(rules.TossupState{Power: res.Power})
		res.Result = "correct"
		counters.Correct = 1
		if res.Power {
			counters.Powers = 1
		}
		categories = r.answerCategories(a.Categories)
	} else {
		res.Points = r.engine.NegPenalty()
		res.Result = "incorrect"
		counters.Incorrect = 1
		if res.Points < 0 {
			counters.Negs = 1
		}
	}

	var entries []scoring.Entry
	for _, scope := range r.scopes() {
		entries = append(entries, scoring.Entry{
			Scope: scope, Subject: models.Individual(p.UserID), Format: r.cfg.Format,
			Round: r.round, Points: res.Points, Categories: categories, Counters: counters,
		})
		if p.TeamID != "" {
			entries = append(entries, scoring.Entry{
				Scope: scope, Subject: models.Team(p.TeamID), Format: r.cfg.Format,
				Round: r.round, Points: res.Points, Categories: categories, Counters: counters,
			})
		}
	}
	records, err := r.ledger.RecordAll(entries...)
	if err != nil {
		return Resolution{}, err
	}

	lockout, err := r.arbiter.Resolve(a.Subject, a.Correct)
	if err != nil {
		return Resolution{}, err
	}
	res.LockoutUntil = lockout
	res.Individual = records[0]
	if p.TeamID != "" {
		team := records[1]
		res.Team = &team
	}
	if a.Correct {
		r.packet.MarkResolved()
		r.timer.Cancel()
	}

	log.Info().
		Str("room_id", r.cfg.ID).
		Str("subject", a.Subject).
		Str("result", res.Result).
		Int("points", res.Points).
		Msg("answer resolved")

	r.notify(events.ScoreUpdate, events.ScoreUpdatePayload{
		Subject: p.UserID, SubjectKind: models.SubjectIndividual,
		PointsDelta: res.Points, Result: res.Result, Total: res.Individual.Cumulative, Power: res.Power,
	})
	if res.Team != nil {
		r.notify(events.ScoreUpdate, events.ScoreUpdatePayload{
			Subject: p.TeamID, SubjectKind: models.SubjectTeam,
			PointsDelta: res.Points, Result: res.Result, Total: res.Team.Cumulative, Power: res.Power,
		})
	}
	return res, nil
}

// answerCategories credits the current question's category with its schema
// weight when the caller supplies none and the format scores it.
func (r *Room) answerCategories(supplied map[models.Category]int) map[models.Category]int {
	if len(supplied) > 0 {
		return supplied
	}
	q, ok := r.packet.Current()
	if !ok || q.Category == "" || !r.engine.HasCategory(q.Category) {
		return nil
	}
	return map[models.Category]int{q.Category: r.engine.CategoryWeight(q.Category)}
}

// scopes lists where this room's scores accumulate; the room's own scope is
// always first.
func (r *Room) scopes() []models.Scope {
	out := []models.Scope{r.roundScope()}
	if r.cfg.Tournament {
		id := r.cfg.TournamentID
		if id == "" {
			id = r.cfg.ID
		}
		out = append(out, models.Scope{Kind: models.ScopeTournament, ID: id})
	}
	return append(out, HallOfFameScope)
}

func (r *Room) roundScope() models.Scope {
	return models.Scope{Kind: models.ScopeSingleRound, ID: r.cfg.ID}
}

// sides are the competitors whose totals decide a tie.
func (r *Room) sides() []models.Subject {
	var out []models.Subject
	seenTeam := make(map[string]bool)
	for _, p := range r.participantList() {
		if p.Role != models.RolePlayer {
			continue
		}
		switch {
		case r.cfg.Mode == models.PlayModePlayerVsPlayer || p.TeamID == "":
			out = append(out, models.Individual(p.UserID))
		case !seenTeam[p.TeamID]:
			seenTeam[p.TeamID] = true
			out = append(out, models.Team(p.TeamID))
		}
	}
	return out
}

// RevealNextClue shows the next pyramidal clue.
func (r *Room) RevealNextClue(requestedBy string) (RevealState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireModerator(requestedBy); err != nil {
		return RevealState{}, err
	}
	if !r.cfg.Format.Pyramidal() {
		return RevealState{}, ErrNotPyramidal
	}
	state, err := r.packet.RevealNextClue()
	if err != nil {
		return RevealState{}, err
	}
	r.notifyReveal(state)
	return state, nil
}

// AdvanceQuestion presents the next question without starting its timer.
func (r *Room) AdvanceQuestion(requestedBy string) (RevealState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireModerator(requestedBy); err != nil {
		return RevealState{}, err
	}
	state, err := r.packet.AdvanceQuestion()
	if err != nil {
		return RevealState{}, err
	}
	r.timer.Cancel()
	r.arbiter.ClearBuzz()
	r.announceQuestion(state)
	return state, nil
}

// StartTimer runs a countdown for a named event, e.g. "bonus" or
// "sixty_second".
func (r *Room) StartTimer(requestedBy, event string) (TimerSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireModerator(requestedBy); err != nil {
		return TimerSnapshot{}, err
	}
	if event = strings.TrimSpace(event); event == "" {
		event = TimerEventTossup
	}
	if timedRoundEvents[event] && !r.engine.HasTimedLightningRound() {
		return TimerSnapshot{}, ErrNoTimedRound
	}
	secs := r.engine.TimerSeconds(event)
	r.timer.Start(event, secs)
	return TimerSnapshot{Event: event, RemainingSeconds: secs}, nil
}

// EndRound checks for a tie, announces the end of the round and moves to
// the next one.
func (r *Room) EndRound(requestedBy string) (RoundSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireModerator(requestedBy); err != nil {
		return RoundSummary{}, err
	}
	r.timer.Cancel()
	summary := RoundSummary{Round: r.round, NextRound: r.round + 1}
	summary.Tied = r.checkTiebreaker(r.round, true)
	r.notify(events.RoundEnded, events.RoundEndedPayload{Round: summary.Round, NextRound: summary.NextRound, Tied: summary.Tied})
	r.round++

	log.Info().Str("room_id", r.cfg.ID).Int("round", summary.Round).Bool("tied", summary.Tied).Msg("round ended")
	return summary, nil
}

// CheckTiebreaker announces sudden death when due and tied.
func (r *Room) CheckTiebreaker(round int, endOfRound bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkTiebreaker(round, endOfRound)
}

func (r *Room) checkTiebreaker(round int, endOfRound bool) bool {
	notice, ok := r.monitor.Check(r.engine, r.roundScope(), r.sides(), round, endOfRound)
	if ok {
		r.notify(events.TiebreakerNotice, notice)
	}
	return ok
}

func (r *Room) Snapshot() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := RoomState{
		Config:       r.cfg,
		Round:        r.round,
		Reveal:       r.packet.State(),
		Buzz:         r.arbiter.State(),
		Moderator:    r.moderator,
		Participants: r.participantList(),
		Standings:    r.ledger.Standings(r.roundScope(), r.cfg.Format, r.sides()),
	}
	if t, ok := r.timer.Active(); ok {
		s.Timer = &t
	}
	return s
}

// Close stops the room's timer.
func (r *Room) Close() {
	r.timer.Close()
}
