package session

import "testing"

func TestAggregateThresholds(t *testing.T) {
	results := []ResultEntry{
		{QuestionID: 1, Reference: "Jueces 6:11", Correct: true},
		{QuestionID: 2, Reference: "Jueces 6:25", Correct: true},
		{QuestionID: 3, Reference: "Jueces 6:36-40", Correct: true},
		{QuestionID: 4, Reference: "Rut 1:16", Correct: true},
		{QuestionID: 5, Reference: "Rut 1:4", Correct: true},
		{QuestionID: 6, Reference: "Jueces 16:4", Correct: false},
		{QuestionID: 7, Reference: "Jueces 16:17", Correct: false},
		{QuestionID: 8, Reference: "Jueces 16:30", Correct: false},
		{QuestionID: 9, Reference: "Jueces 16:1", Correct: true},
		{QuestionID: 10, Reference: "Rut 4:13", Correct: false},
	}

	m := Aggregate(results)

	if len(m.Mastered) != 1 || m.Mastered[0].Chapter != "Jueces 6" || m.Mastered[0].Correct != 3 {
		t.Fatalf("expected only Jueces 6 mastered, got %+v", m.Mastered)
	}
	if len(m.NeedsPractice) != 1 || m.NeedsPractice[0].Chapter != "Jueces 16" || m.NeedsPractice[0].Incorrect != 3 {
		t.Fatalf("expected only Jueces 16 needing practice, got %+v", m.NeedsPractice)
	}
	if m.NeedsPractice[0].Correct != 1 {
		t.Fatalf("expected tally to keep the correct count too, got %+v", m.NeedsPractice[0])
	}
}

func TestAggregateOrdering(t *testing.T) {
	var results []ResultEntry
	add := func(ref string, n int, correct bool) {
		for i := 0; i < n; i++ {
			results = append(results, ResultEntry{Reference: ref, Correct: correct})
		}
	}
	add("Rut 2:1", 3, true)
	add("Jueces 1:1", 3, true)
	add("Rut 3:1", 5, true)

	m := Aggregate(results)
	want := []string{"Rut 3", "Jueces 1", "Rut 2"}
	if len(m.Mastered) != len(want) {
		t.Fatalf("expected %d mastered chapters, got %+v", len(want), m.Mastered)
	}
	for i, ch := range want {
		if m.Mastered[i].Chapter != ch {
			t.Fatalf("position %d: expected %s, got %s", i, ch, m.Mastered[i].Chapter)
		}
	}
	if len(m.NeedsPractice) != 0 {
		t.Fatalf("expected no chapters needing practice")
	}
}

func TestAggregateEmpty(t *testing.T) {
	m := Aggregate(nil)
	if m.Mastered == nil || m.NeedsPractice == nil {
		t.Fatalf("expected empty, non-nil lists for JSON rendering")
	}
}
