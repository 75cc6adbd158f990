// Package progression implements the points and level model.
package progression

// Threshold maps a minimum point balance to a level. The table is scanned
// from the highest minimum down; a member's level is the first entry whose
// minimum does not exceed their points.
type Threshold struct {
	MinPoints int
	Level     int
	Name      string
}

// Ordered ascending by MinPoints; MaxLevel must match the last entry.
var thresholds = []Threshold{
	{0, 1, "Newcomer"},
	{100, 2, "Member"},
	{250, 3, "Contributor"},
	{500, 4, "Builder"},
	{1000, 5, "Veteran"},
	{2000, 6, "Expert"},
	{3500, 7, "Legend"},
	{5000, 8, "Guild Master"},
}

const MaxLevel = 8

func LevelForPoints(points int) int {
	for i := len(thresholds) - 1; i >= 0; i-- {
		if points >= thresholds[i].MinPoints {
			return thresholds[i].Level
		}
	}
	return 1
}

func LevelName(level int) string {
	for _, t := range thresholds {
		if t.Level == level {
			return t.Name
		}
	}
	return "Newcomer"
}

// ThresholdForLevel returns the table entry for a level.
func ThresholdForLevel(level int) (Threshold, bool) {
	for _, t := range thresholds {
		if t.Level == level {
			return t, true
		}
	}
	return Threshold{}, false
}

// NextThreshold returns the entry a member at the given level has yet to
// reach; ok is false at the top of the table.
func NextThreshold(level int) (Threshold, bool) {
	return ThresholdForLevel(level + 1)
}

// Thresholds exposes a copy of the table for reporting surfaces.
func Thresholds() []Threshold {
	out := make([]Threshold, len(thresholds))
	copy(out, thresholds)
	return out
}
