package diceserver

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/diceengine/internal/dice"
	"github.com/cory-johannsen/diceengine/internal/history"
	"github.com/cory-johannsen/diceengine/internal/hpformula"
)

// The gRPC messages are google.protobuf.Struct values with snake_case keys.

func str(v string) *structpb.Value  { return structpb.NewStringValue(v) }
func num(v float64) *structpb.Value { return structpb.NewNumberValue(v) }
func boolean(v bool) *structpb.Value {
	return structpb.NewBoolValue(v)
}

func ints(vs []int) *structpb.Value {
	list := make([]*structpb.Value, len(vs))
	for i, v := range vs {
		list[i] = num(float64(v))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

func object(fields map[string]*structpb.Value) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

func list(vs []*structpb.Value) *structpb.Value {
	return structpb.NewListValue(&structpb.ListValue{Values: vs})
}

func getString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func getNumber(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

func getBool(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func has(s *structpb.Struct, key string) bool {
	_, ok := s.GetFields()[key]
	return ok
}

func getInts(v *structpb.Value) []int {
	values := v.GetListValue().GetValues()
	out := make([]int, len(values))
	for i, x := range values {
		out[i] = int(x.GetNumberValue())
	}
	return out
}

func getNumbers(s *structpb.Struct, key string) map[string]float64 {
	out := map[string]float64{}
	for k, v := range s.GetFields()[key].GetStructValue().GetFields() {
		out[k] = v.GetNumberValue()
	}
	return out
}

func encodeRollRequest(req RollRequest) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"actor": str(req.Actor),
		"expr":  str(req.Expr),
		"sort":  boolean(req.Sort),
	}}
}

func decodeRollRequest(s *structpb.Struct) RollRequest {
	return RollRequest{
		Actor:    getString(s, "actor"),
		Frontend: FrontendGRPC,
		Expr:     getString(s, "expr"),
		Sort:     getBool(s, "sort"),
	}
}

func encodeRoll(r dice.RollResult) *structpb.Struct {
	faces := make([]*structpb.Value, len(r.Faces))
	for i, group := range r.Faces {
		faces[i] = ints(group)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"input":    str(r.Input),
		"expanded": str(r.Expanded),
		"dice":     ints(r.Dice),
		"faces":    list(faces),
		"total":    num(r.Total),
	}}
}

func decodeRoll(s *structpb.Struct) dice.RollResult {
	var faces [][]int
	for _, group := range s.GetFields()["faces"].GetListValue().GetValues() {
		faces = append(faces, getInts(group))
	}
	return dice.RollResult{
		Input:    getString(s, "input"),
		Expanded: getString(s, "expanded"),
		Dice:     getInts(s.GetFields()["dice"]),
		Faces:    faces,
		Total:    getNumber(s, "total"),
	}
}

func encodeAnalyzeRequest(req AnalyzeRequest) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"actor":      str(req.Actor),
		"expr":       str(req.Expr),
		"target":     num(req.Target),
		"comparator": str(string(req.Comparator)),
		"samples":    num(float64(req.Samples)),
	}}
}

func decodeAnalyzeRequest(s *structpb.Struct) AnalyzeRequest {
	return AnalyzeRequest{
		Actor:      getString(s, "actor"),
		Frontend:   FrontendGRPC,
		Expr:       getString(s, "expr"),
		Target:     getNumber(s, "target"),
		Comparator: dice.Comparator(getString(s, "comparator")),
		Samples:    int(getNumber(s, "samples")),
	}
}

func optionalInt(p *int) *structpb.Value {
	if p == nil {
		return structpb.NewNullValue()
	}
	return num(float64(*p))
}

func decodeOptionalInt(v *structpb.Value) *int {
	if v == nil {
		return nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil
	}
	n := int(v.GetNumberValue())
	return &n
}

func encodeAnalysis(a dice.TargetAnalysis) *structpb.Struct {
	terms := make([]*structpb.Value, len(a.Terms))
	for i, t := range a.Terms {
		terms[i] = object(map[string]*structpb.Value{
			"index":                         num(float64(t.Index)),
			"raw":                           str(t.Raw),
			"min_sum":                       num(float64(t.MinSum)),
			"max_sum":                       num(float64(t.MaxSum)),
			"need_at_least_when_others_min": optionalInt(t.NeedAtLeastWhenOthersMin),
			"need_at_least_when_others_max": optionalInt(t.NeedAtLeastWhenOthersMax),
		})
	}
	fields := map[string]*structpb.Value{
		"input":               str(a.Input),
		"target":              num(a.Target),
		"comparator":          str(string(a.Comparator)),
		"method":              str(string(a.Method)),
		"probability":         num(a.Probability),
		"probability_percent": str(a.ProbabilityPercent),
		"terms":               list(terms),
	}
	if a.Method == dice.MethodMonteCarlo {
		fields["samples"] = num(float64(a.Samples))
	}
	if a.CI95 != nil {
		fields["ci95"] = object(map[string]*structpb.Value{
			"low":       num(a.CI95.Low),
			"high":      num(a.CI95.High),
			"low_text":  str(a.CI95.LowText),
			"high_text": str(a.CI95.HighText),
		})
	}
	return &structpb.Struct{Fields: fields}
}

func decodeAnalysis(s *structpb.Struct) dice.TargetAnalysis {
	a := dice.TargetAnalysis{
		Input:              getString(s, "input"),
		Target:             getNumber(s, "target"),
		Comparator:         dice.Comparator(getString(s, "comparator")),
		Method:             dice.Method(getString(s, "method")),
		Probability:        getNumber(s, "probability"),
		ProbabilityPercent: getString(s, "probability_percent"),
		Samples:            int(getNumber(s, "samples")),
		Terms:              []dice.TermInfo{},
	}
	if has(s, "ci95") {
		ci := s.GetFields()["ci95"].GetStructValue()
		a.CI95 = &dice.Interval{
			Low:      getNumber(ci, "low"),
			High:     getNumber(ci, "high"),
			LowText:  getString(ci, "low_text"),
			HighText: getString(ci, "high_text"),
		}
	}
	for _, v := range s.GetFields()["terms"].GetListValue().GetValues() {
		t := v.GetStructValue()
		a.Terms = append(a.Terms, dice.TermInfo{
			Index:                    int(getNumber(t, "index")),
			Raw:                      getString(t, "raw"),
			MinSum:                   int(getNumber(t, "min_sum")),
			MaxSum:                   int(getNumber(t, "max_sum")),
			NeedAtLeastWhenOthersMin: decodeOptionalInt(t.GetFields()["need_at_least_when_others_min"]),
			NeedAtLeastWhenOthersMax: decodeOptionalInt(t.GetFields()["need_at_least_when_others_max"]),
		})
	}
	return a
}

func encodeHPRequest(req HPRequest) *structpb.Struct {
	params := make(map[string]*structpb.Value, len(req.Params))
	for k, v := range req.Params {
		params[k] = num(v)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"actor":   str(req.Actor),
		"subject": str(req.Subject),
		"params":  object(params),
	}}
}

func decodeHPRequest(s *structpb.Struct) HPRequest {
	return HPRequest{
		Actor:    getString(s, "actor"),
		Frontend: FrontendGRPC,
		Subject:  getString(s, "subject"),
		Params:   getNumbers(s, "params"),
	}
}

func encodeHP(r HPResult) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"preset":     str(r.Preset),
		"resolved":   boolean(r.Resolved),
		"expression": str(r.Expression),
		"roll":       structpb.NewStructValue(encodeRoll(r.Roll)),
		"hp":         num(float64(r.HP)),
	}}
}

func decodeHP(s *structpb.Struct) HPResult {
	return HPResult{
		Preset:   getString(s, "preset"),
		Resolved: getBool(s, "resolved"),
		Result: hpformula.Result{
			Expression: getString(s, "expression"),
			Roll:       decodeRoll(s.GetFields()["roll"].GetStructValue()),
			HP:         int(getNumber(s, "hp")),
		},
	}
}

func encodeHistoryRequest(actor string, limit int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"actor": str(actor),
		"limit": num(float64(limit)),
	}}
}

func encodeHistory(entries []history.Entry) *structpb.Struct {
	values := make([]*structpb.Value, len(entries))
	for i, e := range entries {
		values[i] = object(map[string]*structpb.Value{
			"id":         str(e.ID.String()),
			"actor":      str(e.Actor),
			"kind":       str(string(e.Kind)),
			"expression": str(e.Expression),
			"summary":    str(e.Summary),
			"total":      num(e.Total),
			"created_at": str(e.CreatedAt.UTC().Format(time.RFC3339Nano)),
		})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"entries": list(values),
	}}
}

func decodeHistory(s *structpb.Struct) []history.Entry {
	values := s.GetFields()["entries"].GetListValue().GetValues()
	out := make([]history.Entry, 0, len(values))
	for _, v := range values {
		e := v.GetStructValue()
		id, _ := uuid.Parse(getString(e, "id"))
		created, _ := time.Parse(time.RFC3339Nano, getString(e, "created_at"))
		out = append(out, history.Entry{
			ID:         id,
			Actor:      getString(e, "actor"),
			Kind:       history.Kind(getString(e, "kind")),
			Expression: getString(e, "expression"),
			Summary:    getString(e, "summary"),
			Total:      getNumber(e, "total"),
			CreatedAt:  created,
		})
	}
	return out
}
