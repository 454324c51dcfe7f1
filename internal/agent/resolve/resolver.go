package resolve

import (
	"math"
	"regexp"
	"strings"

	"github.com/coilworks/springchat/internal/agent/extract"
	"github.com/coilworks/springchat/internal/agent/model"
	logx "github.com/coilworks/springchat/pkg/logger"
)

// confirmedConfidence is assigned when the user explicitly confirms a
// pending value.
const confirmedConfidence = 0.95

// correctionPendingConfidence marks a field whose correction is in progress:
// below the acceptance threshold so readiness flips off until resolved.
const correctionPendingConfidence = 0.5

// Resolver decides, per turn, whether the utterance answers a pending
// question, corrects an existing field, is ambiguous, or is a fresh
// statement. It owns the turn's candidates and mutates the conversation
// state; it never guesses and never returns an error to the caller.
type Resolver struct {
	extractor  *extract.Extractor
	pairMaxAge int
}

func New(ex *extract.Extractor, pairMaxAgeTurns int) *Resolver {
	if pairMaxAgeTurns <= 0 {
		pairMaxAgeTurns = 2
	}
	return &Resolver{extractor: ex, pairMaxAge: pairMaxAgeTurns}
}

// Resolve applies the priority order: pending confirmation, pending
// ambiguity, correction, bare-number ambiguity, standard acceptance, then
// half-pair bookkeeping.
func (r *Resolver) Resolve(utterance string, cands []model.Candidate, st *model.ConversationState) model.ResolvedUpdate {
	upd := model.ResolvedUpdate{Accepted: make(map[model.Field]model.FieldValue)}
	st.LastCorrection = nil
	lower := strings.ToLower(strings.TrimSpace(utterance))

	consumed := map[model.Field]bool{}
	correctionHandled := false

	// 1. Pending confirmation: an affirmation or negation settles it before
	// anything else in the utterance is considered.
	if st.PendingConfirmation != nil {
		switch {
		case isAffirmation(lower):
			c := st.PendingConfirmation
			st.PendingConfirmation = nil
			r.acceptCandidate(st, &upd, *c, confirmedConfidence)
			consumed[c.Field] = true
			logx.Debug().Str("conversation_id", st.ConversationID).
				Str("field", string(c.Field)).Msg("pending confirmation accepted")
		case isNegation(lower):
			f := st.PendingConfirmation.Field
			st.PendingConfirmation = nil
			// The rejection consumes any correction phrasing in the same
			// utterance; it refers to the proposal just discarded.
			correctionHandled = true
			logx.Debug().Str("conversation_id", st.ConversationID).
				Str("field", string(f)).Msg("pending confirmation discarded")
			// "no, it's 45mm" rejects the proposal and supplies the
			// replacement in one go.
			if spec, ok := model.Spec(f); ok && spec.Kind != model.KindPairList {
				if v, conf, ok := r.correctionValue(utterance, f); ok && conf >= model.AcceptThreshold {
					fv := model.FieldValue{Confidence: conf, SourceTurn: st.Turn}
					if spec.Kind == model.KindText {
						fv.Text = v.text
					} else {
						fv.Number = v.num
					}
					st.Record.Set(f, fv)
					upd.Accepted[f] = fv
					consumed[f] = true
				}
			}
		}
	}

	// 2. Pending ambiguity: the user names one of the candidate fields. The
	// value is re-read from the original utterance so its unit survives the
	// round trip ("2 in" stays 50.8, not 2).
	if st.PendingAmbiguity != nil && st.PendingAmbiguity.Reason == model.ReasonAmbiguousValue {
		if f, ok := r.resolveAmbiguity(utterance, st); ok {
			req := st.PendingAmbiguity
			v := req.RawValue
			if n, unit, ok := extract.FirstNumberWithUnit(utterance); ok {
				v, _ = extract.NormalizeUnit(f, n, unit)
			} else if n, unit, ok := extract.FirstNumberWithUnit(req.RawText); ok {
				v, _ = extract.NormalizeUnit(f, n, unit)
			}
			st.PendingAmbiguity = nil
			r.acceptValue(st, &upd, f, v, model.NumericConfidence(f, v))
		}
	}

	// 3. Correction detection.
	if !correctionHandled && (r.isCorrectionUtterance(utterance, lower, st) || st.CorrectionMode) {
		r.resolveCorrection(utterance, st, &upd, consumed)
	}

	// 4. Bare-number handling: complete a pending half-pair, else flag
	// ambiguity instead of guessing.
	if len(cands) == 0 && len(upd.Accepted) == 0 && upd.NeedsClarification == nil {
		r.resolveBareNumber(utterance, st, &upd)
	}

	// 5. Standard acceptance by confidence band.
	var bestConfirm *model.Candidate
	for i := range cands {
		c := cands[i]
		if consumed[c.Field] {
			continue
		}
		if c.Field == model.FieldSetPoints {
			r.resolvePairs(c, st, &upd, &bestConfirm)
			continue
		}
		switch {
		case c.Confidence >= model.AcceptThreshold:
			r.acceptCandidate(st, &upd, c, c.Confidence)
		case c.Confidence >= model.ConfirmFloor:
			if bestConfirm == nil || c.Confidence > bestConfirm.Confidence {
				bestConfirm = &cands[i]
			}
		default:
			logx.Debug().Str("conversation_id", st.ConversationID).
				Str("field", string(c.Field)).Float64("confidence", c.Confidence).
				Msg("candidate dropped below confirm floor")
		}
	}

	// One confirmation per turn, and never while another is still pending.
	if bestConfirm != nil && st.PendingConfirmation == nil {
		st.PendingConfirmation = bestConfirm
		st.ConfirmationSince = st.Turn
		upd.NeedsConfirmation = bestConfirm
	}

	// 6. Surface half-formed pairs left unpaired too long.
	r.surfaceStaleHalves(st, &upd)

	if len(upd.Accepted) > 0 || len(upd.AcceptedPairs) > 0 {
		// Accepting anything retires the current topic.
		st.ActiveTopic = model.FieldNone
	}

	return upd
}

// resolveAmbiguity returns the candidate field the user named, if it is one
// of the fields the pending value was plausible for.
func (r *Resolver) resolveAmbiguity(utterance string, st *model.ConversationState) (model.Field, bool) {
	for _, f := range extract.MentionedFields(utterance) {
		for _, cf := range st.PendingAmbiguity.CandidateFields {
			if f == cf {
				return f, true
			}
		}
	}
	return model.FieldNone, false
}

// resolveCorrection identifies the correction target and overwrites it. The
// target is the first record field mentioned in the utterance, falling back
// to the most recently written field; with an empty record the resolver asks
// which specification is meant rather than guessing.
func (r *Resolver) resolveCorrection(utterance string, st *model.ConversationState, upd *model.ResolvedUpdate, consumed map[model.Field]bool) {
	target := r.correctionTarget(utterance, st)
	if target == model.FieldNone {
		st.CorrectionMode = true
		req := &model.AmbiguityRequest{
			RawText: utterance,
			Reason:  model.ReasonUnresolvedCorrection,
		}
		st.PendingAmbiguity = req
		st.AmbiguitySince = st.Turn
		upd.NeedsClarification = req
		logx.Debug().Str("conversation_id", st.ConversationID).Msg("correction target not identified")
		return
	}

	if target == model.FieldSetPoints {
		if c, _ := pairsFrom(r.extractor.Extract(utterance, model.FieldSetPoints)); c != nil && c.Confidence >= model.AcceptThreshold {
			// A corrected pair replaces the stored pair at the same
			// position; a pair matching nothing is an addition, never a
			// substitute.
			for _, sp := range c.Pairs {
				sp.SourceTurn = st.Turn
				if i := pairIndexByPosition(st.Record.SetPoints, sp.Position); i >= 0 {
					st.Record.SetPoints[i] = sp
				} else {
					st.Record.AddSetPoint(sp)
				}
				upd.AcceptedPairs = append(upd.AcceptedPairs, sp)
			}
			upd.IsCorrection = true
			upd.Correction = &model.CorrectionNote{Field: target}
			st.LastCorrection = upd.Correction
			r.clearCorrectionState(st)
			consumed[model.FieldSetPoints] = true
		} else {
			r.flagUnresolvedCorrection(st, upd, target, utterance)
		}
		return
	}

	if v, conf, ok := r.correctionValue(utterance, target); ok && conf >= model.AcceptThreshold {
		fv := model.FieldValue{Confidence: conf, SourceTurn: st.Turn}
		spec, _ := model.Spec(target)
		if spec.Kind == model.KindText {
			fv.Text = v.text
		} else {
			fv.Number = v.num
		}
		st.Record.Set(target, fv)
		upd.Accepted[target] = fv
		upd.IsCorrection = true
		upd.Correction = &model.CorrectionNote{Field: target, Value: fv}
		st.LastCorrection = upd.Correction
		r.clearCorrectionState(st)
		consumed[target] = true
		logx.Debug().Str("conversation_id", st.ConversationID).
			Str("field", string(target)).Float64("confidence", conf).Msg("correction accepted")
		return
	}

	r.flagUnresolvedCorrection(st, upd, target, utterance)
}

func (r *Resolver) flagUnresolvedCorrection(st *model.ConversationState, upd *model.ResolvedUpdate, target model.Field, utterance string) {
	// Correction in progress: lower the field below the acceptance
	// threshold so readiness reflects the doubt until it is resolved.
	if fv, ok := st.Record.Get(target); ok && fv.Confidence > correctionPendingConfidence {
		fv.Confidence = correctionPendingConfidence
		st.Record.Set(target, fv)
	}
	st.CorrectionMode = true
	req := &model.AmbiguityRequest{
		RawText:         utterance,
		CandidateFields: []model.Field{target},
		Reason:          model.ReasonUnresolvedCorrection,
	}
	st.PendingAmbiguity = req
	st.AmbiguitySince = st.Turn
	upd.NeedsClarification = req
	logx.Debug().Str("conversation_id", st.ConversationID).
		Str("field", string(target)).Msg("correction unresolved, asking which value")
}

// correctionTarget identifies which field a correction refers to: a named
// field already on record first, then the target of an unresolved correction
// from an earlier turn, then the most recently written field.
func (r *Resolver) correctionTarget(utterance string, st *model.ConversationState) model.Field {
	for _, f := range extract.MentionedFields(utterance) {
		if _, ok := st.Record.Get(f); ok || (f == model.FieldSetPoints && len(st.Record.SetPoints) > 0) {
			return f
		}
	}
	if st.PendingAmbiguity != nil &&
		st.PendingAmbiguity.Reason == model.ReasonUnresolvedCorrection &&
		len(st.PendingAmbiguity.CandidateFields) == 1 {
		return st.PendingAmbiguity.CandidateFields[0]
	}
	// A named field not yet on record is still the target: the correction
	// sets it outright.
	if mentioned := extract.MentionedFields(utterance); len(mentioned) > 0 {
		return mentioned[0]
	}
	if f, ok := st.Record.LastUpdatedField(); ok {
		return f
	}
	return model.FieldNone
}

// clearCorrectionState retires correction mode and its pending prompt once a
// correction lands.
func (r *Resolver) clearCorrectionState(st *model.ConversationState) {
	st.CorrectionMode = false
	if st.PendingAmbiguity != nil && st.PendingAmbiguity.Reason == model.ReasonUnresolvedCorrection {
		st.PendingAmbiguity = nil
	}
}

// correctionValue prefers the "... to <value>" form ("change X from A to B")
// and otherwise re-runs targeted extraction for the field.
func (r *Resolver) correctionValue(utterance string, f model.Field) (corrValue, float64, bool) {
	spec, _ := model.Spec(f)
	if spec.Kind == model.KindNumeric {
		if m := toValueRe.FindStringSubmatch(utterance); m != nil {
			if n, _, ok := extract.FirstNumberWithUnit(m[0]); ok {
				norm, recognized := extract.NormalizeUnit(f, n, m[2])
				conf := 0.85
				if recognized {
					conf = 0.95
				}
				return corrValue{num: norm}, conf, true
			}
		}
	}
	for _, c := range r.extractor.Extract(utterance, f) {
		if c.Field != f {
			continue
		}
		if spec.Kind == model.KindText {
			return corrValue{text: c.Text}, c.Confidence, true
		}
		return corrValue{num: c.Number}, c.Confidence, true
	}
	return corrValue{}, 0, false
}

// resolveBareNumber handles an utterance that is just a value: it completes
// the oldest pending half-pair if one exists, otherwise flags ambiguity when
// the value is plausible for more than one field.
func (r *Resolver) resolveBareNumber(utterance string, st *model.ConversationState, upd *model.ResolvedUpdate) {
	n, unit, ok := extract.FirstNumberWithUnit(utterance)
	if !ok {
		return
	}

	if len(st.PendingHalves) > 0 {
		half := st.PendingHalves[0]
		st.PendingHalves = st.PendingHalves[1:]
		if st.PendingAmbiguity != nil && st.PendingAmbiguity.Reason == model.ReasonIncompletePair {
			st.PendingAmbiguity = nil
		}
		sp := completeHalf(half, n, unit, st.Turn)
		st.Record.AddSetPoint(sp)
		upd.AcceptedPairs = append(upd.AcceptedPairs, sp)
		logx.Debug().Str("conversation_id", st.ConversationID).
			Float64("position", sp.Position).Float64("load", sp.Load).
			Msg("pending half-pair completed")
		return
	}

	fields := plausibleFields(n, unit)
	switch len(fields) {
	case 0:
		logx.Debug().Str("conversation_id", st.ConversationID).
			Float64("value", n).Msg("bare number outside every plausible range, ignored")
	case 1:
		v, _ := extract.NormalizeUnit(fields[0], n, unit)
		r.acceptValue(st, upd, fields[0], v, model.NumericConfidence(fields[0], v))
	default:
		req := &model.AmbiguityRequest{
			RawText:         utterance,
			RawValue:        n,
			CandidateFields: fields,
			Reason:          model.ReasonAmbiguousValue,
		}
		st.PendingAmbiguity = req
		st.AmbiguitySince = st.Turn
		upd.NeedsClarification = req
		logx.Debug().Str("conversation_id", st.ConversationID).
			Float64("value", n).Int("candidates", len(fields)).
			Msg("bare number ambiguous, asking for clarification")
	}
}

// resolvePairs promotes full pairs, joins halves with their pending
// counterparts, and parks the rest.
func (r *Resolver) resolvePairs(c model.Candidate, st *model.ConversationState, upd *model.ResolvedUpdate, bestConfirm **model.Candidate) {
	if len(c.Pairs) > 0 {
		if c.Confidence >= model.AcceptThreshold {
			for _, sp := range c.Pairs {
				sp.SourceTurn = st.Turn
				st.Record.AddSetPoint(sp)
				upd.AcceptedPairs = append(upd.AcceptedPairs, sp)
			}
		} else if c.Confidence >= model.ConfirmFloor {
			if *bestConfirm == nil || c.Confidence > (*bestConfirm).Confidence {
				cc := c
				*bestConfirm = &cc
			}
		}
		return
	}

	if c.Half == nil {
		return
	}

	// Try to join with a waiting counterpart.
	for i, h := range st.PendingHalves {
		if joined, ok := joinHalves(h, *c.Half, st.Turn); ok {
			st.PendingHalves = append(st.PendingHalves[:i], st.PendingHalves[i+1:]...)
			if st.PendingAmbiguity != nil && st.PendingAmbiguity.Reason == model.ReasonIncompletePair {
				st.PendingAmbiguity = nil
			}
			st.Record.AddSetPoint(joined)
			upd.AcceptedPairs = append(upd.AcceptedPairs, joined)
			return
		}
	}

	half := *c.Half
	half.Turn = st.Turn
	st.PendingHalves = append(st.PendingHalves, half)
	logx.Debug().Str("conversation_id", st.ConversationID).
		Msg("half-formed set point parked, awaiting counterpart")
}

// surfaceStaleHalves turns an overdue half-pair into a partial-information
// prompt instead of dropping it.
func (r *Resolver) surfaceStaleHalves(st *model.ConversationState, upd *model.ResolvedUpdate) {
	if upd.NeedsClarification != nil || st.PendingAmbiguity != nil {
		return
	}
	stale := st.StaleHalves(r.pairMaxAge)
	if len(stale) == 0 {
		return
	}
	h := stale[0]
	req := &model.AmbiguityRequest{
		CandidateFields: []model.Field{model.FieldSetPoints},
		Reason:          model.ReasonIncompletePair,
	}
	if h.Position != nil {
		req.RawValue = *h.Position
	} else if h.Load != nil {
		req.RawValue = *h.Load
	}
	st.PendingAmbiguity = req
	st.AmbiguitySince = st.Turn
	upd.NeedsClarification = req
}

func (r *Resolver) acceptCandidate(st *model.ConversationState, upd *model.ResolvedUpdate, c model.Candidate, conf float64) {
	if c.Field == model.FieldSetPoints {
		for _, sp := range c.Pairs {
			sp.Confidence = conf
			sp.SourceTurn = st.Turn
			st.Record.AddSetPoint(sp)
			upd.AcceptedPairs = append(upd.AcceptedPairs, sp)
		}
		return
	}
	spec, _ := model.Spec(c.Field)
	fv := model.FieldValue{Confidence: conf, SourceTurn: st.Turn}
	if spec.Kind == model.KindText {
		fv.Text = c.Text
	} else {
		fv.Number = c.Number
	}
	st.Record.Set(c.Field, fv)
	upd.Accepted[c.Field] = fv
	logx.Debug().Str("conversation_id", st.ConversationID).
		Str("field", string(c.Field)).Float64("confidence", conf).Msg("candidate accepted")
}

func (r *Resolver) acceptValue(st *model.ConversationState, upd *model.ResolvedUpdate, f model.Field, v, conf float64) {
	fv := model.FieldValue{Number: v, Confidence: conf, SourceTurn: st.Turn}
	st.Record.Set(f, fv)
	upd.Accepted[f] = fv
}

// ===== helpers =====

type corrValue struct {
	num  float64
	text string
}

// plausibleFields returns the numeric fields a bare value could belong to.
// A recognized unit restricts candidates to its own dimension, and the
// plausibility check runs on the value normalized per field.
func plausibleFields(n float64, unit string) []model.Field {
	if !extract.KnownUnit(unit) {
		return model.PlausibleNumericFields(n)
	}
	var out []model.Field
	for _, f := range model.AllFields() {
		spec, _ := model.Spec(f)
		if spec.Kind != model.KindNumeric || !extract.IsUnitToken(f, unit) {
			continue
		}
		if v, _ := extract.NormalizeUnit(f, n, unit); spec.Plausible.Contains(v) {
			out = append(out, f)
		}
	}
	return out
}

// pairIndexByPosition finds the stored pair a correction refers to.
func pairIndexByPosition(pairs []model.SetPoint, pos float64) int {
	for i, sp := range pairs {
		if math.Abs(sp.Position-pos) < 1e-9 {
			return i
		}
	}
	return -1
}

func pairsFrom(cands []model.Candidate) (*model.Candidate, bool) {
	for i := range cands {
		if cands[i].Field == model.FieldSetPoints && len(cands[i].Pairs) > 0 {
			return &cands[i], true
		}
	}
	return nil, false
}

func completeHalf(h model.HalfPair, n float64, unit string, turn int) model.SetPoint {
	sp := model.SetPoint{SourceTurn: turn, TolerancePercent: model.DefaultTolerancePercent}
	if h.Position != nil {
		sp.Position = *h.Position
		load, _ := extract.NormalizeForce(n, unit)
		sp.Load = load
	} else {
		sp.Load = derefOrZero(h.Load)
		pos, _ := extract.NormalizeLength(n, unit)
		sp.Position = pos
	}
	sp.Confidence = pairConfidence(sp)
	return sp
}

func joinHalves(a, b model.HalfPair, turn int) (model.SetPoint, bool) {
	var pos, load *float64
	switch {
	case a.Position != nil && b.Load != nil:
		pos, load = a.Position, b.Load
	case a.Load != nil && b.Position != nil:
		pos, load = b.Position, a.Load
	default:
		return model.SetPoint{}, false
	}
	sp := model.SetPoint{
		Position:         *pos,
		Load:             *load,
		TolerancePercent: model.DefaultTolerancePercent,
		SourceTurn:       turn,
	}
	sp.Confidence = pairConfidence(sp)
	return sp, true
}

func pairConfidence(sp model.SetPoint) float64 {
	pc := model.NumericConfidence(model.FieldFreeLength, sp.Position)
	// Position shares the length plausibility bands; loads use the force
	// bands via the safety-limit field spec.
	lc := model.NumericConfidence(model.FieldSafetyLimit, sp.Load)
	if lc < pc {
		return lc
	}
	return pc
}

func derefOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

var toValueRe = regexp.MustCompile(`(?i)\bto\s+(-?\d+(?:\.\d+)?)\s*([a-zA-Z"]*)`)

var affirmations = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "correct": true,
	"right": true, "sure": true, "ok": true, "okay": true, "confirmed": true,
	"exactly": true,
}

var negations = map[string]bool{
	"no": true, "nope": true, "nah": true, "wrong": true, "incorrect": true,
}

func isAffirmation(lower string) bool {
	w := firstWord(lower)
	return affirmations[w] || strings.HasPrefix(lower, "that's right") || strings.HasPrefix(lower, "that is right")
}

func isNegation(lower string) bool {
	w := firstWord(lower)
	return negations[w] || strings.HasPrefix(lower, "that's wrong") || strings.HasPrefix(lower, "that's not right") || strings.HasPrefix(lower, "not right")
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= 'a' && c <= 'z' {
			end++
			continue
		}
		break
	}
	return s[:end]
}

// correctionMarkers flag negation-of-prior-statement phrasing. The bare "no"
// start requires punctuation so "no of coils" is not misread.
var correctionMarkers = []string{
	"i meant", "wrong", "incorrect", "should be", "correction",
	"instead of", "not right",
}

var noStartRe = regexp.MustCompile(`^no[,.!]`)

func hasCorrectionMarker(lower string) bool {
	if noStartRe.MatchString(lower) {
		return true
	}
	if strings.HasPrefix(lower, "change ") {
		return true
	}
	for _, m := range correctionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// isCorrectionUtterance reports whether the utterance revises earlier input.
// "actually" on its own is too weak a signal: it only counts when the
// utterance restates a field already on record, so a fresh statement like
// "actually, the coil count is 8" is plain acceptance.
func (r *Resolver) isCorrectionUtterance(utterance, lower string, st *model.ConversationState) bool {
	if hasCorrectionMarker(lower) {
		return true
	}
	if !strings.Contains(lower, "actually") {
		return false
	}
	for _, f := range extract.MentionedFields(utterance) {
		if _, ok := st.Record.Get(f); ok {
			return true
		}
		if f == model.FieldSetPoints && len(st.Record.SetPoints) > 0 {
			return true
		}
	}
	return false
}
