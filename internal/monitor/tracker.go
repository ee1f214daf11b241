// internal/monitor/tracker.go
package monitor

import (
	"fmt"
	"strings"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
)

// errorKeywords are matched case-insensitively as substrings against recent
// game output lines.
var errorKeywords = []string{"error", "can't afford", "failed", "invalid"}

// Tracker derives monitoring events from consecutive state snapshots. It
// holds the previous poll's snapshot and monster set between updates; one
// Tracker serves exactly one run.
type Tracker struct {
	prev         schemas.Snapshot
	prevMonsters map[string]struct{}
}

// NewTracker seeds the tracker with the run's initial observation. The first
// Update compares against this baseline.
func NewTracker(initial schemas.Snapshot) *Tracker {
	return &Tracker{
		prev:         initial,
		prevMonsters: monsterSet(initial.Location.Monsters),
	}
}

// Update folds one poll into the accumulator and returns any newly detected
// issue strings. Event order within a tick is fixed: HP delta, monster set
// delta, combat event, output error scan.
func (t *Tracker) Update(cur schemas.Snapshot, recentOutput []string, elapsed int, data *schemas.MonitoringData) []string {
	if cur.Character.HP != t.prev.Character.HP {
		data.HpChanges = append(data.HpChanges, schemas.HpChange{
			Time:    elapsed,
			From:    t.prev.Character.HP,
			To:      cur.Character.HP,
			Percent: cur.Character.HPPercent,
		})
	}

	curMonsters := monsterSet(cur.Location.Monsters)
	spawned := false
	for m := range curMonsters {
		if _, ok := t.prevMonsters[m]; !ok {
			spawned = true
			break
		}
	}
	if spawned {
		data.Cycles++
	}
	died := false
	for m := range t.prevMonsters {
		if _, ok := curMonsters[m]; !ok {
			died = true
			break
		}
	}
	if died {
		data.MonstersKilled++
	}

	if cur.Combat.InCombat {
		data.CombatEvents = append(data.CombatEvents, schemas.CombatEvent{
			Time:      elapsed,
			Target:    cur.Combat.TargetedMonster,
			HP:        cur.Character.HP,
			HPPercent: cur.Character.HPPercent,
		})
	}

	issues := t.scanOutput(recentOutput, elapsed, data)

	t.prev = cur
	t.prevMonsters = curMonsters
	return issues
}

// scanOutput appends keyword-matched lines to the accumulator, deduplicating
// by verbatim line text across the whole run.
func (t *Tracker) scanOutput(lines []string, elapsed int, data *schemas.MonitoringData) []string {
	var issues []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		matched := false
		for _, kw := range errorKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched || data.HasError(line) {
			continue
		}
		data.Errors = append(data.Errors, schemas.ErrorRecord{Time: elapsed, Message: line})
		issues = append(issues, fmt.Sprintf("[%ds] ERROR: %s", elapsed, truncateLine(line, 60)))
	}
	return issues
}

func monsterSet(monsters []string) map[string]struct{} {
	set := make(map[string]struct{}, len(monsters))
	for _, m := range monsters {
		set[m] = struct{}{}
	}
	return set
}

func truncateLine(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
