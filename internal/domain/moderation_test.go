package domain

import "testing"

func TestDetermineVerdict_Allow(t *testing.T) {
	// Every category at or below 60% of its threshold.
	th := DefaultThresholds()
	scores := ScoreVector{
		NSFW:         th[CategoryNSFW] * 0.6,
		Violence:     th[CategoryViolence] * 0.6,
		Hate:         0,
		ChildSafety:  th[CategoryChildSafety] * 0.6,
		Spam:         1,
		DrugsWeapons: 0,
	}

	verdict, category := DetermineVerdict(scores, th)
	if verdict != VerdictAllow {
		t.Fatalf("expected allow, got %s", verdict)
	}
	if category != "" {
		t.Errorf("allow must not carry a category, got %q", category)
	}
}

func TestDetermineVerdict_Warn(t *testing.T) {
	th := DefaultThresholds()
	scores := ScoreVector{Violence: 5} // threshold 6, 60% band is 3.6

	verdict, category := DetermineVerdict(scores, th)
	if verdict != VerdictWarn {
		t.Fatalf("expected warn, got %s", verdict)
	}
	if category != "" {
		t.Errorf("warn must not carry a category, got %q", category)
	}
}

func TestDetermineVerdict_BlockFirstInOrder(t *testing.T) {
	th := DefaultThresholds()
	// Both hate and drugs_weapons exceed; drugs_weapons by a larger margin.
	// The reported category must be the first in table order, not the max.
	scores := ScoreVector{Hate: 5.5, DrugsWeapons: 9}

	verdict, category := DetermineVerdict(scores, th)
	if verdict != VerdictBlock {
		t.Fatalf("expected block, got %s", verdict)
	}
	if category != CategoryHate {
		t.Errorf("expected first exceeded category %q, got %q", CategoryHate, category)
	}
}

func TestDetermineVerdict_ThresholdIsStrict(t *testing.T) {
	th := DefaultThresholds()
	scores := ScoreVector{NSFW: th[CategoryNSFW]} // exactly at threshold

	verdict, _ := DetermineVerdict(scores, th)
	if verdict == VerdictBlock {
		t.Fatal("score equal to threshold must not block")
	}
}

func TestDetermineVerdict_NSFWScenario(t *testing.T) {
	verdict, category := DetermineVerdict(ScoreVector{NSFW: 8}, DefaultThresholds())
	if verdict != VerdictBlock {
		t.Fatalf("expected block, got %s", verdict)
	}
	if category != CategoryNSFW {
		t.Errorf("expected nsfw, got %q", category)
	}
}

func TestScoreVectorMax(t *testing.T) {
	s := ScoreVector{NSFW: 1, Violence: 2, Hate: 3, ChildSafety: 9, Spam: 4, DrugsWeapons: 5}
	if got := s.Max(); got != 9 {
		t.Errorf("expected max 9, got %g", got)
	}
}

func TestThresholdTableCoversAllCategories(t *testing.T) {
	th := DefaultThresholds()
	for _, c := range CategoryOrder {
		if _, ok := th[c]; !ok {
			t.Errorf("missing threshold for category %q", c)
		}
	}
	if len(th) != len(CategoryOrder) {
		t.Errorf("threshold table has %d entries, want %d", len(th), len(CategoryOrder))
	}
}
