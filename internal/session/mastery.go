package session

import (
	"sort"

	"scripture-quiz-service/internal/domain"
)

// MasteryThreshold is the number of correct (or incorrect) answers in one
// chapter needed to list it as mastered (or needing practice).
const MasteryThreshold = 3

// ChapterTally counts results for one chapter.
type ChapterTally struct {
	Chapter   string `json:"chapter"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// Mastery groups chapters by how the user did on them.
type Mastery struct {
	Mastered      []ChapterTally `json:"mastered"`
	NeedsPractice []ChapterTally `json:"needsPractice"`
}

// Aggregate derives mastery lists from a results log.
func Aggregate(results []ResultEntry) Mastery {
	tallies := make(map[string]*ChapterTally)
	for _, r := range results {
		chapter := domain.Chapter(r.Reference)
		if chapter == "" {
			continue
		}
		t, ok := tallies[chapter]
		if !ok {
			t = &ChapterTally{Chapter: chapter}
			tallies[chapter] = t
		}
		if r.Correct {
			t.Correct++
		} else {
			t.Incorrect++
		}
	}

	m := Mastery{Mastered: []ChapterTally{}, NeedsPractice: []ChapterTally{}}
	for _, t := range tallies {
		if t.Correct >= MasteryThreshold {
			m.Mastered = append(m.Mastered, *t)
		}
		if t.Incorrect >= MasteryThreshold {
			m.NeedsPractice = append(m.NeedsPractice, *t)
		}
	}
	sort.Slice(m.Mastered, func(i, j int) bool {
		if m.Mastered[i].Correct != m.Mastered[j].Correct {
			return m.Mastered[i].Correct > m.Mastered[j].Correct
		}
		return m.Mastered[i].Chapter < m.Mastered[j].Chapter
	})
	sort.Slice(m.NeedsPractice, func(i, j int) bool {
		if m.NeedsPractice[i].Incorrect != m.NeedsPractice[j].Incorrect {
			return m.NeedsPractice[i].Incorrect > m.NeedsPractice[j].Incorrect
		}
		return m.NeedsPractice[i].Chapter < m.NeedsPractice[j].Chapter
	})
	return m
}
