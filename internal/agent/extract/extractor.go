package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/coilworks/springchat/internal/agent/model"
)

// maxTextLen bounds accepted text values (names, part numbers).
const maxTextLen = 49

// fuzzyMinFields: the fuzzy fallback only runs when general extraction found
// fewer distinct fields than this.
const fuzzyMinFields = 3

// Extractor turns one utterance into zero or more confidence-scored
// candidates. It is a pure function of utterance and active topic; all rule
// tables are immutable package data shared across conversations.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract runs the targeted strategy (when the system just asked about
// topic), then the general pattern rules, then the fuzzy fallback when fewer
// than three distinct fields were found.
func (e *Extractor) Extract(utterance string, topic model.Field) []model.Candidate {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}

	var out []model.Candidate
	found := make(map[model.Field]bool)
	var claimed [][2]int

	if topic != model.FieldNone {
		cands, ranges := e.targeted(utterance, topic)
		for _, c := range cands {
			found[c.Field] = true
		}
		out = append(out, cands...)
		claimed = append(claimed, ranges...)
	}

	// Full position/load pairs claim their numbers before per-field rules run.
	if !found[model.FieldSetPoints] {
		if c, ranges := extractPairs(utterance, claimed); c != nil {
			out = append(out, *c)
			found[model.FieldSetPoints] = true
			claimed = append(claimed, ranges...)
		}
	}

	out = append(out, e.general(utterance, found, &claimed)...)

	if !found[model.FieldSetPoints] {
		halves, ranges := extractHalves(utterance, claimed)
		out = append(out, halves...)
		claimed = append(claimed, ranges...)
	}

	if len(found) < fuzzyMinFields {
		out = append(out, fuzzyCandidates(utterance, found, claimed)...)
	}

	return out
}

// targeted extraction: the system just asked about topic, so the utterance
// is read as an answer to that question.
func (e *Extractor) targeted(utterance string, topic model.Field) ([]model.Candidate, [][2]int) {
	spec, ok := model.Spec(topic)
	if !ok {
		return nil, nil
	}

	// An utterance naming other fields but not the topic is not an answer
	// to the question; the general rules own it.
	if mentioned := MentionedFields(utterance); len(mentioned) > 0 {
		topicMentioned := false
		for _, f := range mentioned {
			if f == topic {
				topicMentioned = true
				break
			}
		}
		if !topicMentioned {
			return nil, nil
		}
	}

	switch spec.Kind {
	case model.KindNumeric:
		loc := numberRe.FindStringIndex(utterance)
		if loc == nil {
			return nil, nil
		}
		v, err := strconv.ParseFloat(utterance[loc[0]:loc[1]], 64)
		if err != nil {
			return nil, nil
		}
		unitTok := leadingUnitToken(utterance[loc[1]:])
		norm, recognized := NormalizeUnit(topic, v, unitTok)
		// a unit from another dimension means this is not the answer
		if !recognized && KnownUnit(unitTok) {
			return nil, nil
		}
		conf := 0.85
		if recognized {
			conf = 0.95
		}
		c := model.Candidate{
			Field:      topic,
			RawText:    strings.TrimSpace(utterance[loc[0]:loc[1]] + " " + unitTok),
			Number:     norm,
			Confidence: conf,
		}
		return []model.Candidate{c}, [][2]int{{loc[0], loc[1]}}

	case model.KindText:
		txt := stripFillers(utterance)
		txt = cleanText(txt)
		if len(txt) < 1 || len(txt) > maxTextLen {
			return nil, nil
		}
		c := model.Candidate{Field: topic, RawText: utterance, Text: txt, Confidence: 0.9}
		return []model.Candidate{c}, nil

	case model.KindPairList:
		if c, ranges := extractPairs(utterance, nil); c != nil {
			return []model.Candidate{*c}, ranges
		}
		if halves, ranges := extractHalves(utterance, nil); len(halves) > 0 {
			return halves, ranges
		}
		// A bare number in answer to a set-point question reads as a position,
		// unless its unit marks it as a load.
		if nums := numberRe.FindAllStringIndex(utterance, -1); len(nums) == 1 {
			v, err := strconv.ParseFloat(utterance[nums[0][0]:nums[0][1]], 64)
			if err != nil {
				return nil, nil
			}
			unitTok := leadingUnitToken(utterance[nums[0][1]:])
			half := &model.HalfPair{}
			if IsUnitToken(model.FieldSafetyLimit, unitTok) {
				load, _ := NormalizeForce(v, unitTok)
				half.Load = &load
			} else {
				pos, _ := NormalizeLength(v, unitTok)
				half.Position = &pos
			}
			c := model.Candidate{
				Field:      model.FieldSetPoints,
				RawText:    utterance,
				Half:       half,
				Confidence: 0.85,
			}
			return []model.Candidate{c}, [][2]int{{nums[0][0], nums[0][1]}}
		}
	}
	return nil, nil
}

// general applies the declarative rule table; the first matching rule wins
// per field, and a rule whose number was already claimed by an earlier field
// is skipped.
func (e *Extractor) general(utterance string, found map[model.Field]bool, claimed *[][2]int) []model.Candidate {
	var out []model.Candidate
	for _, r := range fieldRules {
		if found[r.field] {
			continue
		}
		m := r.re.FindStringSubmatchIndex(utterance)
		if m == nil {
			continue
		}

		if r.kind == ruleNumeric {
			numRange := [2]int{m[2], m[3]}
			if overlapsAny(numRange, *claimed) {
				continue
			}
			v, err := strconv.ParseFloat(utterance[m[2]:m[3]], 64)
			if err != nil {
				continue
			}
			unit := ""
			if len(m) > 5 && m[4] >= 0 {
				unit = utterance[m[4]:m[5]]
			}
			norm, _ := NormalizeUnit(r.field, v, unit)
			out = append(out, model.Candidate{
				Field:      r.field,
				RawText:    utterance[m[0]:m[1]],
				Number:     norm,
				Confidence: model.NumericConfidence(r.field, norm),
			})
			*claimed = append(*claimed, numRange)
			found[r.field] = true
			continue
		}

		txt := cleanText(utterance[m[2]:m[3]])
		if len(txt) < 1 || len(txt) > maxTextLen {
			continue
		}
		out = append(out, model.Candidate{
			Field:      r.field,
			RawText:    utterance[m[0]:m[1]],
			Text:       txt,
			Confidence: 0.8,
		})
		found[r.field] = true
	}
	return out
}

// extractPairs pulls every full position/load pair out of the utterance,
// skipping pairs whose numbers were already claimed by an earlier strategy.
// The candidate's confidence is the lowest per-pair confidence.
func extractPairs(utterance string, taken [][2]int) (*model.Candidate, [][2]int) {
	ms := pairRe.FindAllStringSubmatchIndex(utterance, -1)
	if len(ms) == 0 {
		return nil, nil
	}

	var pairs []model.SetPoint
	var claimed [][2]int
	minConf := 1.0
	for _, m := range ms {
		if overlapsAny([2]int{m[2], m[3]}, taken) || overlapsAny([2]int{m[6], m[7]}, taken) {
			continue
		}
		pos, err := strconv.ParseFloat(utterance[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		if m[4] >= 0 {
			pos, _ = NormalizeLength(pos, utterance[m[4]:m[5]])
		}
		load, err := strconv.ParseFloat(utterance[m[6]:m[7]], 64)
		if err != nil {
			continue
		}
		tol := model.DefaultTolerancePercent
		if m[8] >= 0 {
			if t, err := strconv.ParseFloat(utterance[m[8]:m[9]], 64); err == nil {
				tol = t
			}
		}
		if m[10] >= 0 {
			load, _ = NormalizeForce(load, utterance[m[10]:m[11]])
		}

		conf := rangeConfidence(pos, positionTypical, positionPlausible)
		if lc := rangeConfidence(load, loadTypical, loadPlausible); lc < conf {
			conf = lc
		}
		if conf < minConf {
			minConf = conf
		}
		pairs = append(pairs, model.SetPoint{
			Position:         pos,
			Load:             load,
			TolerancePercent: tol,
			Confidence:       conf,
		})
		claimed = append(claimed, [2]int{m[2], m[3]}, [2]int{m[6], m[7]})
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	return &model.Candidate{
		Field:      model.FieldSetPoints,
		RawText:    utterance[ms[0][0]:ms[len(ms)-1][1]],
		Pairs:      pairs,
		Confidence: minConf,
	}, claimed
}

// extractHalves finds a position or load stated without its counterpart.
func extractHalves(utterance string, claimed [][2]int) ([]model.Candidate, [][2]int) {
	var out []model.Candidate
	var ranges [][2]int

	if m := posHalfRe.FindStringSubmatchIndex(utterance); m != nil && !overlapsAny([2]int{m[2], m[3]}, claimed) {
		if v, err := strconv.ParseFloat(utterance[m[2]:m[3]], 64); err == nil {
			unit := ""
			if m[4] >= 0 {
				unit = utterance[m[4]:m[5]]
			}
			pos, _ := NormalizeLength(v, unit)
			out = append(out, model.Candidate{
				Field:      model.FieldSetPoints,
				RawText:    utterance[m[0]:m[1]],
				Half:       &model.HalfPair{Position: &pos},
				Confidence: rangeConfidence(pos, positionTypical, positionPlausible),
			})
			ranges = append(ranges, [2]int{m[2], m[3]})
		}
	}
	if m := loadHalfRe.FindStringSubmatchIndex(utterance); m != nil && !overlapsAny([2]int{m[2], m[3]}, append(claimed, ranges...)) {
		if v, err := strconv.ParseFloat(utterance[m[2]:m[3]], 64); err == nil {
			unit := ""
			if m[4] >= 0 {
				unit = utterance[m[4]:m[5]]
			}
			load, _ := NormalizeForce(v, unit)
			out = append(out, model.Candidate{
				Field:      model.FieldSetPoints,
				RawText:    utterance[m[0]:m[1]],
				Half:       &model.HalfPair{Load: &load},
				Confidence: rangeConfidence(load, loadTypical, loadPlausible),
			})
			ranges = append(ranges, [2]int{m[2], m[3]})
		}
	}
	return out, ranges
}

// FirstNumber returns the first numeric token in the utterance.
func FirstNumber(s string) (float64, bool) {
	loc := numberRe.FindString(s)
	if loc == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(loc, 64)
	return v, err == nil
}

// FirstNumberWithUnit returns the first numeric token plus the unit-like
// token adjacent to it, if any.
func FirstNumberWithUnit(s string) (float64, string, bool) {
	loc := numberRe.FindStringIndex(s)
	if loc == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(s[loc[0]:loc[1]], 64)
	if err != nil {
		return 0, "", false
	}
	return v, leadingUnitToken(s[loc[1]:]), true
}

// CountNumbers returns how many numeric tokens the utterance contains.
func CountNumbers(s string) int {
	return len(numberRe.FindAllString(s, -1))
}

// synonymRes holds per-field word-boundary matchers for field mentions,
// compiled once at init.
var synonymRes = func() map[model.Field][]*regexp.Regexp {
	out := make(map[model.Field][]*regexp.Regexp)
	for _, f := range model.AllFields() {
		spec, _ := model.Spec(f)
		for _, syn := range spec.Synonyms {
			out[f] = append(out[f], regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(syn)+`\b`))
		}
	}
	return out
}()

// MentionedFields returns every field whose synonym appears verbatim in the
// utterance, in ask-priority order.
func MentionedFields(utterance string) []model.Field {
	var out []model.Field
	for _, f := range model.AllFields() {
		for _, re := range synonymRes[f] {
			if re.MatchString(utterance) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// leadingUnitToken extracts the unit-like token immediately following a
// number, if any.
func leadingUnitToken(rest string) string {
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return ""
	}
	if rest[0] == '"' {
		return `"`
	}
	end := 0
	for end < len(rest) {
		c := rest[end]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			end++
			continue
		}
		break
	}
	return rest[:end]
}

// fillerPrefixes are leading phrases stripped from targeted text answers.
var fillerPrefixes = []string{
	"it's", "it is", "its", "that's", "that is", "the", "a", "an",
	"called", "name is", "this is",
}

// typeSuffixes are trailing type words stripped from text values.
var typeSuffixes = []string{"spring", "part"}

func stripFillers(s string) string {
	s = strings.TrimSpace(s)
	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(s)
		for _, p := range fillerPrefixes {
			if strings.HasPrefix(lower, p+" ") {
				s = strings.TrimSpace(s[len(p):])
				changed = true
				break
			}
		}
	}
	return s
}

func cleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'.,!?`)
	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(s)
		for _, suf := range typeSuffixes {
			if strings.HasSuffix(lower, " "+suf) {
				s = strings.TrimSpace(s[:len(s)-len(suf)])
				changed = true
				break
			}
		}
	}
	return strings.TrimSpace(s)
}

func overlapsAny(r [2]int, claimed [][2]int) bool {
	for _, c := range claimed {
		if r[0] < c[1] && c[0] < r[1] {
			return true
		}
	}
	return false
}
