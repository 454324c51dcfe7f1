package extract

import (
	"math"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/coilworks/springchat/internal/agent/model"
)

// fuzzyThreshold is the minimum 0-100 similarity for a synonym/typo variant
// to count as a field mention.
const fuzzyThreshold = 80

type token struct {
	text  string
	start int
	end   int
	num   float64
	isNum bool
}

func tokenize(s string) []token {
	ms := tokenRe.FindAllStringIndex(s, -1)
	out := make([]token, 0, len(ms))
	for _, m := range ms {
		t := token{text: s[m[0]:m[1]], start: m[0], end: m[1]}
		if v, err := strconv.ParseFloat(t.text, 64); err == nil {
			t.num = v
			t.isNum = true
		}
		out = append(out, t)
	}
	return out
}

// similarity is a 0-100 approximate string similarity score based on
// levenshtein distance over the longer string.
func similarity(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	m := la
	if lb > m {
		m = lb
	}
	if m == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(d)/float64(m))))
}

// span is a word token or an adjacent-token bigram, so multi-word synonyms
// ("free length") can still match.
type span struct {
	text string
	idx  int // index of the first token
}

func wordSpans(tokens []token) []span {
	var out []span
	for i, t := range tokens {
		if t.isNum {
			continue
		}
		out = append(out, span{text: t.text, idx: i})
		if i+1 < len(tokens) && !tokens[i+1].isNum {
			out = append(out, span{text: t.text + " " + tokens[i+1].text, idx: i})
		}
	}
	return out
}

// fuzzyCandidates matches synonym/typo variants against utterance tokens and
// binds the nearest unclaimed numeric token as the candidate value, at
// confidence score/100.
func fuzzyCandidates(utterance string, found map[model.Field]bool, claimed [][2]int) []model.Candidate {
	tokens := tokenize(utterance)
	if len(tokens) == 0 {
		return nil
	}
	spans := wordSpans(tokens)
	if len(spans) == 0 {
		return nil
	}

	var out []model.Candidate
	for _, f := range model.AllFields() {
		if found[f] {
			continue
		}
		spec, _ := model.Spec(f)
		if spec.Kind != model.KindNumeric {
			continue
		}

		bestScore := 0
		bestIdx := -1
		for _, syn := range spec.Synonyms {
			for _, sp := range spans {
				if s := similarity(syn, sp.text); s > bestScore {
					bestScore = s
					bestIdx = sp.idx
				}
			}
		}
		if bestScore < fuzzyThreshold {
			continue
		}

		ni := nearestNumber(tokens, bestIdx, claimed)
		if ni < 0 {
			continue
		}
		unit := ""
		if ni+1 < len(tokens) && !tokens[ni+1].isNum {
			unit = tokens[ni+1].text
		}
		norm, _ := NormalizeUnit(f, tokens[ni].num, unit)
		out = append(out, model.Candidate{
			Field:      f,
			RawText:    utterance,
			Number:     norm,
			Confidence: float64(bestScore) / 100,
		})
		claimed = append(claimed, [2]int{tokens[ni].start, tokens[ni].end})
		found[f] = true
	}
	return out
}

func nearestNumber(tokens []token, from int, claimed [][2]int) int {
	best := -1
	bestDist := math.MaxInt32
	for i, t := range tokens {
		if !t.isNum || overlapsAny([2]int{t.start, t.end}, claimed) {
			continue
		}
		d := i - from
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
