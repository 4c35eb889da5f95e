// internal/services/knockout_service.go
// Knockout scheduler: seeds a bracket from league standings (or binds a
// static plan), fills later rounds as earlier ones resolve, and inserts
// tiebreaker matches wherever progression needs a strict ordering the
// scoresheets do not supply.

package services

import (
	"fmt"

	"compcore/internal/compstate"
	"compcore/internal/models"
)

// KnockoutService builds the knockout phase of a competition.
type KnockoutService struct {
	league   *LeagueService
	schedule *ScheduleService
}

// NewKnockoutService creates a knockout scheduler.
func NewKnockoutService(league *LeagueService, schedule *ScheduleService) *KnockoutService {
	return &KnockoutService{league: league, schedule: schedule}
}

// KnockoutInput is everything one evaluation hands the scheduler.
type KnockoutInput struct {
	Compstate *compstate.Compstate

	Standings      []models.Standing
	Stats          map[models.TeamID]*models.TeamStats
	LeagueComplete bool

	// LeagueSlotCount is the number of league match numbers; knockout
	// numbering continues where the league left off.
	LeagueSlotCount int

	SheetFor func(models.MatchNumber, models.ArenaID) (*models.Scoresheet, bool)
}

// KnockoutResult is the evaluated knockout phase.
type KnockoutResult struct {
	// Rounds in play order; the final is the last round and has exactly
	// one match.
	Rounds [][]*models.Match

	// Tiebreakers in the order they were inserted into the timetable.
	Tiebreakers []*models.Match

	// Matches is every knockout and tiebreaker match in timetable order.
	Matches []*models.Match

	// PendingTies lists the orderings still waiting on a tiebreaker
	// result. Recovered conditions, not failures: each one already has
	// its tiebreaker match in the timetable.
	PendingTies []*models.TieUnresolvedError

	// Winner is the knockout champion once the final resolves.
	Winner *models.TeamID
}

// Build evaluates the knockout phase from scratch. The result is fully
// deterministic in the compstate: re-running the same inputs recreates
// the same bracket, numbering and slot times.
func (s *KnockoutService) Build(in KnockoutInput) (*KnockoutResult, error) {
	b := &knockoutBuilder{
		svc:      s,
		in:       in,
		nextNum:  models.MatchNumber(in.LeagueSlotCount),
		outcomes: make(map[models.MatchNumber]*outcomeEntry),
	}

	var err error
	if in.Compstate.Knockout.Mode == compstate.KnockoutModeStatic {
		err = b.buildStatic()
	} else {
		err = b.buildSeeded()
	}
	if err != nil {
		return nil, err
	}

	winner, err := b.resolveWinner()
	if err != nil {
		return nil, err
	}

	if err := b.bindSlots(); err != nil {
		return nil, err
	}

	return &KnockoutResult{
		Rounds:      b.rounds,
		Tiebreakers: b.tiebreakers,
		Matches:     b.ordered,
		PendingTies: b.pendingTies,
		Winner:      winner,
	}, nil
}

// knockoutBuilder accumulates matches in timetable order while a bracket
// is being constructed.
type knockoutBuilder struct {
	svc *KnockoutService
	in  KnockoutInput

	rounds      [][]*models.Match
	tiebreakers []*models.Match

	// ordered is every created match in timetable order: seeding
	// tiebreakers, round 1, progression tiebreakers, round 2, ...
	ordered []*models.Match

	pendingTies []*models.TieUnresolvedError

	nextNum models.MatchNumber

	// outcomes caches each match's resolved ranked outcome so a
	// predecessor consulted twice never spawns duplicate tiebreakers.
	outcomes map[models.MatchNumber]*outcomeEntry
}

// outcomeEntry is a cached ranked outcome. Pending means the match (or a
// tiebreaker it depends on) has not been scored yet.
type outcomeEntry struct {
	order   []models.TeamID
	pending bool
}

// arenaFor cycles the declared arenas across the knockout timetable.
func (b *knockoutBuilder) arenaFor(index int) models.ArenaID {
	arenas := b.in.Compstate.Arenas
	return arenas[index%len(arenas)].ID
}

// newTiebreaker creates a tiebreaker match between exactly the tied teams
// and inserts it at the current point of the timetable.
func (b *knockoutBuilder) newTiebreaker(teams []models.TeamID) *models.Match {
	capacity := b.in.Compstate.TeamsPerArena
	slots := make([]models.TeamID, capacity)
	for i := range slots {
		if i < len(teams) {
			slots[i] = teams[i]
		} else {
			slots[i] = models.NoTeam
		}
	}

	match := &models.Match{
		Num:                b.nextNum,
		Arena:              b.arenaFor(len(b.ordered)),
		Type:               models.MatchTypeTiebreaker,
		DisplayName:        fmt.Sprintf("Tiebreaker %d", len(b.tiebreakers)+1),
		Teams:              slots,
		UseResolvedRanking: true,
	}
	b.nextNum++
	b.ordered = append(b.ordered, match)
	b.tiebreakers = append(b.tiebreakers, match)
	return match
}

// bindSlots stamps every created match with the knockout slot supply.
func (b *knockoutBuilder) bindSlots() error {
	slots := b.svc.schedule.SlotTimes(models.MatchTypeKnockout)
	if len(b.ordered) > len(slots) {
		return &models.PlanExceedsPeriodsError{
			Type:      models.MatchTypeKnockout,
			Planned:   len(b.ordered),
			Scheduled: len(slots),
		}
	}
	for i, match := range b.ordered {
		b.svc.schedule.BindAt(match, slots[i])
	}
	return nil
}

// resolveWinner settles the final. Ties in the final always spawn a
// tiebreaker, so the champion is unique once the bracket resolves.
func (b *knockoutBuilder) resolveWinner() (*models.TeamID, error) {
	if len(b.rounds) == 0 {
		return nil, nil
	}
	final := b.rounds[len(b.rounds)-1]
	if len(final) != 1 {
		return nil, fmt.Errorf("bracket has %d final matches, want exactly one", len(final))
	}

	order, pending, err := b.resolvedOutcome(final[0], 1)
	if err != nil {
		return nil, err
	}
	if pending || len(order) == 0 {
		return nil, nil
	}
	winner := order[0]
	return &winner, nil
}

// ---------------------------------------------------------------------------
// Outcome resolution

// resolvedOutcome returns a match's ranked outcome with the first `depth`
// positions strictly ordered. Tied groups touching those positions are
// settled by tiebreaker matches; until every needed tiebreaker is scored
// the outcome stays pending. Results are cached per match.
func (b *knockoutBuilder) resolvedOutcome(match *models.Match, depth int) ([]models.TeamID, bool, error) {
	if entry, ok := b.outcomes[match.Num]; ok {
		return entry.order, entry.pending, nil
	}

	entry := &outcomeEntry{}
	b.outcomes[match.Num] = entry

	sheet, ok := b.in.SheetFor(match.Num, match.Arena)
	if !ok {
		entry.pending = true
		return nil, true, nil
	}

	ranking, err := b.svc.league.RankMatch(match, sheet)
	if err != nil {
		return nil, false, err
	}

	pos := 0
	for _, group := range outcomeGroups(ranking) {
		if pos >= depth || len(group) == 1 || !match.UseResolvedRanking {
			entry.order = append(entry.order, group...)
			pos += len(group)
			continue
		}

		resolved, pending, err := b.resolveTie(group, len(group), fmt.Sprintf("progression from match %d", match.Num))
		if err != nil {
			return nil, false, err
		}
		if pending {
			entry.order = nil
			entry.pending = true
			return nil, true, nil
		}
		entry.order = append(entry.order, resolved...)
		pos += len(resolved)
	}

	return entry.order, false, nil
}

// resolveTie strictly orders the first `take` teams of a tied group by
// playing tiebreaker matches. Returns pending=true while the deciding
// match has no scoresheet yet.
func (b *knockoutBuilder) resolveTie(tied []models.TeamID, take int, context string) ([]models.TeamID, bool, error) {
	var resolved, tail []models.TeamID
	for {
		tb := b.newTiebreaker(tied)
		sheet, ok := b.in.SheetFor(tb.Num, tb.Arena)
		if !ok {
			b.pendingTies = append(b.pendingTies, &models.TieUnresolvedError{
				Teams:   append([]models.TeamID(nil), tied...),
				Context: context,
			})
			return nil, true, nil
		}

		ranking, err := b.svc.league.RankMatch(tb, sheet)
		if err != nil {
			return nil, false, err
		}

		// Teams the tiebreaker separated are settled; teams still tied
		// go to another tiebreaker between just themselves.
		again := false
		groups := outcomeGroups(ranking)
		for gi, group := range groups {
			if take <= 0 {
				resolved = append(resolved, group...)
				continue
			}
			if len(group) == 1 {
				resolved = append(resolved, group[0])
				take--
				continue
			}
			tied = group
			// Groups ranked below the repeat tie keep their place behind it.
			var rest []models.TeamID
			for _, below := range groups[gi+1:] {
				rest = append(rest, below...)
			}
			tail = append(rest, tail...)
			again = true
			break
		}
		if !again {
			return append(resolved, tail...), false, nil
		}
	}
}

// ---------------------------------------------------------------------------
// Seeded bracket

// buildSeeded derives the first round from league standings and generates
// the later rounds as a fixed-shape bracket.
func (b *knockoutBuilder) buildSeeded() error {
	capacity := b.in.Compstate.TeamsPerArena
	eligible := b.eligibleTeams()

	firstRound := b.in.Compstate.Knockout.FirstRoundMatches
	if firstRound == 0 {
		firstRound = deriveFirstRoundMatches(len(eligible), capacity)
	}

	seedCount := firstRound * capacity
	seeds, err := b.seedOrder(eligible, seedCount)
	if err != nil {
		return err
	}

	roundSizes := bracketRoundSizes(firstRound)

	// Round by round: fill team slots first (possibly inserting
	// tiebreakers), then create the round's matches so they land after
	// those tiebreakers in the timetable.
	var prev []*models.Match
	for r, size := range roundSizes {
		var fills [][]models.TeamID
		if r == 0 {
			fills = firstRoundSeating(seeds, size, capacity)
		} else {
			fills = make([][]models.TeamID, size)
			for j := 0; j < size; j++ {
				teams, err := b.successorTeams(prev, j, capacity)
				if err != nil {
					return err
				}
				fills[j] = teams
			}
		}

		round := make([]*models.Match, size)
		for j := 0; j < size; j++ {
			match := &models.Match{
				Num:                b.nextNum,
				Arena:              b.arenaFor(len(b.ordered)),
				Type:               models.MatchTypeKnockout,
				DisplayName:        roundDisplayName(len(roundSizes), r, j),
				Teams:              make([]models.TeamID, capacity),
				UseResolvedRanking: true,
			}
			for i := range match.Teams {
				match.Teams[i] = models.NoTeam
			}
			if fills[j] != nil {
				copy(match.Teams, fills[j])
			}
			b.nextNum++
			b.ordered = append(b.ordered, match)
			round[j] = match
		}
		b.rounds = append(b.rounds, round)
		prev = round
	}

	return nil
}

// eligibleTeams returns the teams that may be seeded, in canonical team
// order. Default eligibility: every non-dropped team taking part in the
// league; once the league completes, teams that never actually played
// fall out.
func (b *knockoutBuilder) eligibleTeams() []models.TeamID {
	inLeague := make(map[models.TeamID]bool)
	for _, match := range b.in.Compstate.LeaguePlan {
		for _, team := range match.ParticipatingTeams() {
			inLeague[team] = true
		}
	}

	var out []models.TeamID
	for _, team := range b.in.Compstate.Teams {
		if team.DroppedOutAfter != nil {
			continue
		}
		if !inLeague[team.ID] {
			continue
		}
		if b.in.LeagueComplete {
			if st, ok := b.in.Stats[team.ID]; !ok || st.Played == 0 {
				continue
			}
		}
		out = append(out, team.ID)
	}
	return out
}

// seedOrder produces the seed order for the top seats. Ties that the
// tie-break chain cannot resolve across the seat boundary spawn a
// tiebreaker match; until that match is scored the seeding stays pending
// and the bracket's team slots remain empty.
func (b *knockoutBuilder) seedOrder(eligible []models.TeamID, seats int) ([]models.TeamID, error) {
	if !b.in.LeagueComplete {
		return nil, nil
	}

	eligibleSet := make(map[models.TeamID]bool, len(eligible))
	for _, team := range eligible {
		eligibleSet[team] = true
	}

	// Standing groups restricted to eligible teams, order preserved.
	var groups [][]models.TeamID
	for _, standing := range b.in.Standings {
		var group []models.TeamID
		for _, team := range standing.Teams {
			if eligibleSet[team] {
				group = append(group, team)
			}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}

	var seeds []models.TeamID
	for _, group := range groups {
		if len(seeds) >= seats {
			break
		}
		remaining := seats - len(seeds)
		if len(group) <= remaining {
			// Entirely inside the seats; within-group order is the
			// canonical presentation order.
			seeds = append(seeds, group...)
			continue
		}

		// The group crosses the boundary between seeded and unseeded:
		// only a tiebreaker match can decide who takes the last seats.
		resolved, pending, err := b.resolveTie(group, remaining, "league seeding")
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, nil
		}
		seeds = append(seeds, resolved[:remaining]...)
	}

	return seeds, nil
}

// successorTeams fills one successor match's slots from the ranked
// outcomes of its two predecessor matches. Each predecessor feeds its
// own half of the successor's slots.
func (b *knockoutBuilder) successorTeams(prev []*models.Match, j, capacity int) ([]models.TeamID, error) {
	advance := capacity / 2
	teams := make([]models.TeamID, capacity)
	for i := range teams {
		teams[i] = models.NoTeam
	}

	any := false
	for side, p := range []int{2 * j, 2*j + 1} {
		if p >= len(prev) {
			continue
		}
		order, pending, err := b.resolvedOutcome(prev[p], advance)
		if err != nil {
			return nil, err
		}
		if pending {
			continue
		}
		for i := 0; i < advance && i < len(order); i++ {
			teams[side*advance+i] = order[i]
			any = true
		}
	}

	if !any {
		return nil, nil
	}
	return teams, nil
}

// ---------------------------------------------------------------------------
// Static bracket

// buildStatic binds the compstate's explicit knockout plan, resolving
// seed and winner-of placeholders as results come in.
func (b *knockoutBuilder) buildStatic() error {
	plan := b.in.Compstate.Knockout
	capacity := b.in.Compstate.TeamsPerArena
	eligible := b.eligibleTeams()

	// Seeds referenced by the plan need that many standings positions.
	maxSeed := 0
	neededDepth := make(map[models.MatchNumber]int)
	for _, planned := range plan.Matches {
		for _, ref := range planned.Teams {
			if ref.Seed > maxSeed {
				maxSeed = ref.Seed
			}
			if ref.WinnerOf != nil && ref.Rank > neededDepth[*ref.WinnerOf] {
				neededDepth[*ref.WinnerOf] = ref.Rank
			}
		}
	}
	if b.in.LeagueComplete && maxSeed > len(eligible) {
		return &models.ReferenceError{Kind: "seed", Ref: fmt.Sprintf("%d", maxSeed)}
	}

	byRound := make(map[int][]*compstate.StaticKnockoutMatch)
	maxRound := 0
	for _, planned := range plan.Matches {
		byRound[planned.Round] = append(byRound[planned.Round], planned)
		if planned.Round > maxRound {
			maxRound = planned.Round
		}
		// Tiebreaker numbering must not collide with the plan's own.
		if planned.Num >= b.nextNum {
			b.nextNum = planned.Num + 1
		}
	}

	seeds, err := b.seedOrder(eligible, maxSeed)
	if err != nil {
		return err
	}

	matchesByNum := make(map[models.MatchNumber]*models.Match)
	for round := 0; round <= maxRound; round++ {
		planned := byRound[round]
		if len(planned) == 0 {
			return &models.SchemaError{
				Path: "knockout.yaml",
				Err:  fmt.Errorf("no matches declared for knockout round %d", round),
			}
		}

		// Resolve this round's team slots before creating its matches
		// so any tiebreakers slot in ahead of them.
		fills := make([][]models.TeamID, len(planned))
		for i, pm := range planned {
			teams := make([]models.TeamID, capacity)
			for slot, ref := range pm.Teams {
				team, err := b.resolveSlotRef(ref, seeds, matchesByNum, neededDepth)
				if err != nil {
					return err
				}
				teams[slot] = team
			}
			fills[i] = teams
		}

		roundMatches := make([]*models.Match, len(planned))
		for i, pm := range planned {
			match := &models.Match{
				Num:                pm.Num,
				Arena:              pm.Arena,
				Type:               models.MatchTypeKnockout,
				DisplayName:        roundDisplayName(maxRound+1, round, i),
				Teams:              fills[i],
				UseResolvedRanking: true,
			}
			b.ordered = append(b.ordered, match)
			matchesByNum[pm.Num] = match
			roundMatches[i] = match
		}
		b.rounds = append(b.rounds, roundMatches)
	}

	return nil
}

// resolveSlotRef resolves one static plan slot to a concrete team, or
// NoTeam while its source is undecided.
func (b *knockoutBuilder) resolveSlotRef(ref compstate.TeamSlotRef, seeds []models.TeamID, matchesByNum map[models.MatchNumber]*models.Match, neededDepth map[models.MatchNumber]int) (models.TeamID, error) {
	switch {
	case ref.IsEmpty():
		return models.NoTeam, nil

	case ref.Team != models.NoTeam:
		return ref.Team, nil

	case ref.Seed > 0:
		if seeds == nil {
			return models.NoTeam, nil
		}
		if ref.Seed > len(seeds) {
			return models.NoTeam, &models.ReferenceError{Kind: "seed", Ref: fmt.Sprintf("%d", ref.Seed)}
		}
		return seeds[ref.Seed-1], nil

	default:
		source, ok := matchesByNum[*ref.WinnerOf]
		if !ok {
			return models.NoTeam, &models.ReferenceError{Kind: "match", Ref: fmt.Sprintf("%d", *ref.WinnerOf)}
		}
		order, pending, err := b.resolvedOutcome(source, neededDepth[source.Num])
		if err != nil {
			return models.NoTeam, err
		}
		if pending || len(order) < ref.Rank {
			return models.NoTeam, nil
		}
		return order[ref.Rank-1], nil
	}
}

// ---------------------------------------------------------------------------
// Bracket shapes

// deriveFirstRoundMatches picks the largest power-of-two match count
// whose seats all fill from the eligible teams, at least one match.
func deriveFirstRoundMatches(teamCount, capacity int) int {
	matches := 1
	for matches*2*capacity <= teamCount {
		matches *= 2
	}
	return matches
}

// bracketRoundSizes lists the per-round match counts down to the final.
func bracketRoundSizes(firstRound int) []int {
	sizes := []int{firstRound}
	for n := firstRound; n > 1; {
		n = (n + 1) / 2
		sizes = append(sizes, n)
	}
	return sizes
}

// firstRoundSeating folds seeds into first-round matches: seed pairs
// (1, K), (2, K-1), ... are dealt to the matches outside-in so the top
// seeds meet the weakest opposition.
func firstRoundSeating(seeds []models.TeamID, matches, capacity int) [][]models.TeamID {
	if seeds == nil {
		return make([][]models.TeamID, matches)
	}

	seats := matches * capacity
	pairsPerMatch := capacity / 2
	numPairs := matches * pairsPerMatch

	seedAt := func(seed int) models.TeamID {
		if seed <= len(seeds) {
			return seeds[seed-1]
		}
		return models.NoTeam
	}

	fills := make([][]models.TeamID, matches)
	for j := range fills {
		fills[j] = make([]models.TeamID, 0, capacity)
	}

	// Snake the pair list across the matches: 0..m-1 then m-1..0.
	for pair := 0; pair < numPairs; pair++ {
		lap, pos := pair/matches, pair%matches
		target := pos
		if lap%2 == 1 {
			target = matches - 1 - pos
		}
		fills[target] = append(fills[target], seedAt(pair+1), seedAt(seats-pair))
	}
	return fills
}

// outcomeGroups flattens a match ranking into ordered groups, excluded
// teams trailing as one final group.
func outcomeGroups(ranking *MatchRanking) [][]models.TeamID {
	groups := ranking.Groups
	if len(ranking.Excluded) > 0 {
		groups = append(append([][]models.TeamID{}, groups...), ranking.Excluded)
	}
	return groups
}

// roundDisplayName names bracket matches the way crowds read them.
func roundDisplayName(totalRounds, round, index int) string {
	switch totalRounds - round {
	case 1:
		return "Final"
	case 2:
		return fmt.Sprintf("Semi-final %d", index+1)
	case 3:
		return fmt.Sprintf("Quarter-final %d", index+1)
	default:
		return fmt.Sprintf("Knockout round %d match %d", round+1, index+1)
	}
}
