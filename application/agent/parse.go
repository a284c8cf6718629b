package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParsedReply is a tolerantly-recovered LLM reply: the
// model is asked for {"analysis"?, "reasoning", "result"} but real
// replies arrive wrapped in code fences, truncated mid-object, or with
// reasoning folded into an "analysis" field instead.
type ParsedReply struct {
	Analysis  string
	Reasoning string
	Result    int
	HasResult bool
}

var (
	codeFenceRe      = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	resultFieldRe    = regexp.MustCompile(`"result"\s*:\s*(-?\d+)`)
	reasoningFieldRe = regexp.MustCompile(`"reasoning"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	analysisFieldRe  = regexp.MustCompile(`"analysis"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

type strictReply struct {
	Analysis  string `json:"analysis"`
	Reasoning string `json:"reasoning"`
	Result    *int   `json:"result"`
}

// Parse recovers a ParsedReply from raw model output: strict JSON first,
// then a code-fence-stripped retry, then substring field recovery for a
// truncated object. An analysis field is promoted to Reasoning when the
// model has no dedicated reasoning field, so a recovered decision never
// logs an empty rationale next to a present analysis.
func Parse(raw string) (ParsedReply, error) {
	trimmed := strings.TrimSpace(raw)

	if reply, ok := tryStrict(trimmed); ok {
		return reply, nil
	}

	repaired := trimmed
	if m := codeFenceRe.FindStringSubmatch(trimmed); m != nil {
		repaired = strings.TrimSpace(m[1])
		if reply, ok := tryStrict(repaired); ok {
			return reply, nil
		}
	}

	out := ParsedReply{}
	if m := reasoningFieldRe.FindStringSubmatch(repaired); m != nil {
		out.Reasoning = unescapeJSONString(m[1])
	}
	if m := analysisFieldRe.FindStringSubmatch(repaired); m != nil {
		out.Analysis = unescapeJSONString(m[1])
	}
	if out.Reasoning == "" {
		out.Reasoning = out.Analysis
	}
	if m := resultFieldRe.FindStringSubmatch(repaired); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out.Result = n
			out.HasResult = true
			return out, nil
		}
	}

	return out, fmt.Errorf("no recoverable result field in reply")
}

func tryStrict(s string) (ParsedReply, bool) {
	var strict strictReply
	if err := json.Unmarshal([]byte(s), &strict); err != nil || strict.Result == nil {
		return ParsedReply{}, false
	}
	reasoning := strict.Reasoning
	if reasoning == "" {
		reasoning = strict.Analysis
	}
	return ParsedReply{
		Analysis:  strict.Analysis,
		Reasoning: reasoning,
		Result:    *strict.Result,
		HasResult: true,
	}, true
}

func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}
	return s
}
