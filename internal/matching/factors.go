// internal/matching/factors.go
package matching

import (
	"math"
	"strings"
	"time"

	"match-workers/internal/models"
)

const (
	maxScore = 100

	// NeutralRecencyScore is used when none of the required skills has usage history.
	NeutralRecencyScore = 50

	crossModeLocationScore   = 70
	unknownModeLocationScore = 70

	freshMonths = 6
	staleMonths = 36
)

// SkillAssessment is the per-skill detail behind the expertise factor.
type SkillAssessment struct {
	SkillID     string
	MinLevel    int
	MustHave    bool
	Present     bool
	Proficiency int
	Verified    bool
	SubScore    int
}

// BelowLevel reports whether the candidate misses the required level, absent skills included.
func (s SkillAssessment) BelowLevel() bool {
	return s.Proficiency < s.MinLevel
}

// LogisticsDetail keeps the three equally weighted logistics sub-scores.
type LogisticsDetail struct {
	Location  int
	Language  int
	StartDate int
}

// ScoreMission scores cause and value overlap. No causes and no values means no opinion.
func ScoreMission(req *models.AssignmentRequirements, p *models.CandidateProfile) int {
	causes := toSet(req.Causes)
	values := toSet(req.Values)
	den := len(causes) + len(values)
	if den == 0 {
		return maxScore
	}
	num := overlap(causes, p.Causes) + overlap(values, p.Values)
	return clamp(ratioPercent(num, den))
}

// ScoreExpertise scores every required skill and returns the weighted mean with
// must-have skills counted twice. Skills absent from the profile score 0.
func ScoreExpertise(req *models.AssignmentRequirements, p *models.CandidateProfile, verifiedBonus int) (int, []SkillAssessment) {
	if len(req.RequiredExpertise) == 0 {
		return maxScore, nil
	}

	held := make(map[string]models.SkillRecord, len(p.Expertise))
	for _, s := range p.Expertise {
		key := normalize(s.SkillID)
		if key == "" {
			continue
		}
		// duplicate entries keep the strongest claim
		if cur, ok := held[key]; !ok || s.ProficiencyLevel > cur.ProficiencyLevel {
			held[key] = s
		}
	}

	assessments := make([]SkillAssessment, 0, len(req.RequiredExpertise))
	seen := make(map[string]bool, len(req.RequiredExpertise))
	weighted, totalWeight := 0, 0
	for _, rs := range req.RequiredExpertise {
		key := normalize(rs.SkillID)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		a := SkillAssessment{
			SkillID:  rs.SkillID,
			MinLevel: rs.MinLevel,
			MustHave: rs.MustHave,
		}
		if a.MinLevel < 1 {
			a.MinLevel = 1
		}
		if rec, ok := held[key]; ok {
			a.Present = true
			a.Proficiency = clampLevel(rec.ProficiencyLevel)
			a.Verified = rec.Verified
		}
		a.SubScore = skillSubScore(a.Proficiency, a.MinLevel, a.Verified, verifiedBonus)
		assessments = append(assessments, a)

		w := 1
		if a.MustHave {
			w = 2
		}
		weighted += w * a.SubScore
		totalWeight += w
	}

	if totalWeight == 0 {
		return maxScore, assessments
	}
	return clamp(ratioPercentScaled(weighted, totalWeight)), assessments
}

func skillSubScore(proficiency, minLevel int, verified bool, verifiedBonus int) int {
	if proficiency <= 0 {
		return 0
	}
	score := maxScore
	if proficiency < minLevel {
		score = ratioPercent(proficiency, minLevel)
	}
	if verified {
		score += verifiedBonus
	}
	return clamp(score)
}

// ScoreTools is the share of required tools the candidate uses.
func ScoreTools(req *models.AssignmentRequirements, p *models.CandidateProfile) int {
	required := toSet(req.RequiredTools)
	if len(required) == 0 {
		return maxScore
	}
	held := make([]string, 0, len(p.Tools))
	for _, t := range p.Tools {
		held = append(held, t.ToolID)
	}
	return clamp(ratioPercent(overlap(required, held), len(required)))
}

// MissingTools lists required tools the candidate does not use, in requirement order.
func MissingTools(req *models.AssignmentRequirements, p *models.CandidateProfile) []string {
	held := make(map[string]struct{}, len(p.Tools))
	for _, t := range p.Tools {
		held[normalize(t.ToolID)] = struct{}{}
	}
	var missing []string
	seen := map[string]bool{}
	for _, t := range req.RequiredTools {
		key := normalize(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := held[key]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// ScoreLogistics averages location, language and start-date fit.
func ScoreLogistics(req *models.AssignmentRequirements, p *models.CandidateProfile, asOf time.Time, graceDays int) (int, LogisticsDetail) {
	d := LogisticsDetail{
		Location:  scoreLocation(req, p),
		Language:  scoreLanguages(req, p),
		StartDate: scoreStartDate(req.StartWindow, p.AvailableStartDate, asOf, graceDays),
	}
	return clamp(ratioPercentScaled(d.Location+d.Language+d.StartDate, 3)), d
}

func scoreLocation(req *models.AssignmentRequirements, p *models.CandidateProfile) int {
	mode := models.LocationMode(normalize(string(req.LocationMode)))
	if mode == "" {
		return maxScore
	}

	if mode != models.LocationRemote && req.Country != "" && p.Region != "" &&
		normalize(req.Country) != normalize(p.Region) {
		return 0
	}

	if len(p.WorkModes) == 0 {
		return unknownModeLocationScore
	}

	cross := false
	for _, wm := range p.WorkModes {
		m := models.LocationMode(normalize(string(wm)))
		if m == mode {
			return maxScore
		}
		if remoteHybridPair(m, mode) {
			cross = true
		}
	}
	if cross {
		return crossModeLocationScore
	}
	return 0
}

// remoteHybridPair reports whether one mode is remote and the other hybrid. Onsite is
// never cross-compatible.
func remoteHybridPair(a, b models.LocationMode) bool {
	return (a == models.LocationRemote && b == models.LocationHybrid) ||
		(a == models.LocationHybrid && b == models.LocationRemote)
}

func scoreLanguages(req *models.AssignmentRequirements, p *models.CandidateProfile) int {
	required := toSet(req.RequiredLanguages)
	if len(required) == 0 {
		return maxScore
	}
	return clamp(ratioPercent(overlap(required, p.Languages), len(required)))
}

// scoreStartDate gives 100 inside the window and decays linearly to 0 over graceDays
// past the latest start. Being available early counts as inside: the candidate can
// start on the earliest date.
func scoreStartDate(w models.StartWindow, start *time.Time, asOf time.Time, graceDays int) int {
	if w.IsZero() || w.Latest.IsZero() {
		return maxScore
	}
	s := asOf
	if start != nil {
		s = *start
	}
	if !s.After(w.Latest) {
		return maxScore
	}
	if graceDays <= 0 {
		return 0
	}
	daysLate := s.Sub(w.Latest).Hours() / 24
	return clamp(roundHalfUp(float64(maxScore) * (1 - daysLate/float64(graceDays))))
}

// ScoreRecency is the mean freshness of required skills the candidate holds. When none
// of them has usage history the factor is neutral.
func ScoreRecency(req *models.AssignmentRequirements, p *models.CandidateProfile, asOf time.Time) (score int, neutral bool) {
	required := toSet(skillIDs(req.RequiredExpertise))
	if len(required) == 0 {
		return NeutralRecencyScore, true
	}

	latest := make(map[string]*time.Time)
	held := make(map[string]bool)
	for _, s := range p.Expertise {
		key := normalize(s.SkillID)
		if _, ok := required[key]; !ok {
			continue
		}
		held[key] = true
		if s.LastUsedDate == nil {
			continue
		}
		if cur := latest[key]; cur == nil || s.LastUsedDate.After(*cur) {
			latest[key] = s.LastUsedDate
		}
	}
	if len(latest) == 0 {
		return NeutralRecencyScore, true
	}

	total := 0
	for key := range held {
		if last := latest[key]; last != nil {
			total += freshness(*last, asOf)
		}
	}
	return clamp(ratioPercentScaled(total, len(held))), false
}

// freshness is 100 within six months, 0 at 36 months, linear in between.
func freshness(lastUsed, asOf time.Time) int {
	freshCutoff := asOf.AddDate(0, -freshMonths, 0)
	staleCutoff := asOf.AddDate(0, -staleMonths, 0)
	if !lastUsed.Before(freshCutoff) {
		return maxScore
	}
	if !lastUsed.After(staleCutoff) {
		return 0
	}
	span := freshCutoff.Sub(staleCutoff).Hours()
	remaining := lastUsed.Sub(staleCutoff).Hours()
	return clamp(roundHalfUp(float64(maxScore) * remaining / span))
}

// ==========================
// helpers
// ==========================

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if k := normalize(it); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func overlap(set map[string]struct{}, items []string) int {
	n := 0
	counted := make(map[string]bool, len(items))
	for _, it := range items {
		k := normalize(it)
		if _, ok := set[k]; ok && !counted[k] {
			counted[k] = true
			n++
		}
	}
	return n
}

func skillIDs(skills []models.RequiredSkill) []string {
	ids := make([]string, 0, len(skills))
	for _, s := range skills {
		ids = append(ids, s.SkillID)
	}
	return ids
}

// ratioPercent returns round-half-up(100 * num / den) for non-negative inputs.
func ratioPercent(num, den int) int {
	return (200*num + den) / (2 * den)
}

// ratioPercentScaled returns round-half-up(num / den) where num is already scaled to 0..100*den.
func ratioPercentScaled(num, den int) int {
	return (2*num + den) / (2 * den)
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxScore {
		return maxScore
	}
	return v
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 5 {
		return 5
	}
	return level
}
