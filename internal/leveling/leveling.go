// Package leveling derives a user's level from cumulative XP. Stored level
// fields are caches of LevelFromXP and are rewritten whenever XP changes.
package leveling

// XPToAdvance returns the XP needed to go from level to level+1.
func XPToAdvance(level int) int64 {
	if level < 1 {
		level = 1
	}
	n := int64(level - 1)
	return 5*n*n + 50*n + 100
}

// LevelFromXP is the level reached with xp cumulative experience. Level 1 starts at 0 XP.
func LevelFromXP(xp int64) int {
	level := 1
	for remaining := xp; remaining >= XPToAdvance(level); level++ {
		remaining -= XPToAdvance(level)
	}
	return level
}

// XPForLevel is the cumulative XP at which level is reached.
func XPForLevel(level int) int64 {
	var total int64
	for l := 1; l < level; l++ {
		total += XPToAdvance(l)
	}
	return total
}

type Progress struct {
	Level       int   `json:"level"`
	XPIntoLevel int64 `json:"xpIntoLevel"`
	XPToNext    int64 `json:"xpToNext"`
}

func ProgressFor(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	level := LevelFromXP(xp)
	into := xp - XPForLevel(level)
	return Progress{Level: level, XPIntoLevel: into, XPToNext: XPToAdvance(level) - into}
}
