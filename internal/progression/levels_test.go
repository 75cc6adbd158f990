package progression

import "testing"

func TestLevelForPointsMatchesTable(t *testing.T) {
	t.Parallel()

	for _, th := range Thresholds() {
		if got := LevelForPoints(th.MinPoints); got != th.Level {
			t.Fatalf("LevelForPoints(%d) = %d, want %d", th.MinPoints, got, th.Level)
		}
		if th.MinPoints > 0 {
			if got := LevelForPoints(th.MinPoints - 1); got >= th.Level {
				t.Fatalf("LevelForPoints(%d) = %d, want below %d", th.MinPoints-1, got, th.Level)
			}
		}
	}
}

func TestLevelForPointsMonotonic(t *testing.T) {
	t.Parallel()

	prev := 0
	for p := 0; p <= 6000; p++ {
		level := LevelForPoints(p)
		if level < prev {
			t.Fatalf("level decreased at %d points: %d -> %d", p, prev, level)
		}
		prev = level
	}
	if prev != MaxLevel {
		t.Fatalf("expected max level %d at 6000 points, got %d", MaxLevel, prev)
	}
}

func TestLevelForPointsDefaultsToOne(t *testing.T) {
	t.Parallel()

	if got := LevelForPoints(0); got != 1 {
		t.Fatalf("LevelForPoints(0) = %d, want 1", got)
	}
}

func TestNextThreshold(t *testing.T) {
	t.Parallel()

	next, ok := NextThreshold(1)
	if !ok || next.Level != 2 || next.MinPoints != 100 {
		t.Fatalf("unexpected next threshold for level 1: %#v ok=%v", next, ok)
	}
	if _, ok := NextThreshold(MaxLevel); ok {
		t.Fatalf("max level must have no next threshold")
	}
}

func TestLevelName(t *testing.T) {
	t.Parallel()

	if got := LevelName(8); got != "Guild Master" {
		t.Fatalf("LevelName(8) = %q", got)
	}
	if got := LevelName(99); got != "Newcomer" {
		t.Fatalf("LevelName(99) = %q, want fallback", got)
	}
}
