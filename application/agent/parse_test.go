package agent

import "testing"

func TestParseStrictJSON(t *testing.T) {
	reply, err := Parse(`{"analysis":"thinking","reasoning":"go left","result":2}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Result != 2 || reply.Reasoning != "go left" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestParsePromotesAnalysisWhenReasoningMissing(t *testing.T) {
	reply, err := Parse(`{"analysis":"only analysis here","result":1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Reasoning != "only analysis here" {
		t.Fatalf("expected analysis promoted to reasoning, got %q", reply.Reasoning)
	}
}

func TestParseStripsCodeFence(t *testing.T) {
	reply, err := Parse("```json\n{\"reasoning\":\"go right\",\"result\":3}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Result != 3 {
		t.Fatalf("expected result 3, got %d", reply.Result)
	}
}

func TestParseRecoversTruncatedJSON(t *testing.T) {
	reply, err := Parse(`{"reasoning":"the door seems safer","result":1, "extra": "cut off mid-str`)
	if err != nil {
		t.Fatalf("expected recovery from truncated json, got error: %v", err)
	}
	if reply.Result != 1 || reply.Reasoning != "the door seems safer" {
		t.Fatalf("unexpected recovered reply: %+v", reply)
	}
}

func TestParseFailsWithoutResult(t *testing.T) {
	_, err := Parse(`complete garbage, no json structure whatsoever`)
	if err == nil {
		t.Fatalf("expected error for unrecoverable reply")
	}
}
