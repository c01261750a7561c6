package sheet

import "testing"

func TestCriteriaAcceptNoPatterns(t *testing.T) {
	var c Criteria
	if !c.Accept("anything") {
		t.Fatal("expected every sheet name to be accepted with no patterns configured")
	}
}

func TestCriteriaAcceptMatchesAnyPattern(t *testing.T) {
	c := Criteria{SheetNamePatterns: []string{"Summary", "Data*"}}
	if !c.Accept("Data2024") {
		t.Fatal("expected Data2024 to match the Data* pattern")
	}
	if !c.Accept("Summary") {
		t.Fatal("expected an exact match against Summary")
	}
	if c.Accept("Other") {
		t.Fatal("expected Other to be rejected")
	}
}
