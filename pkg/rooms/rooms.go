// Package rooms canonicalizes the room strings found in the upstream
// timetable feed so that spelling variants of the same physical room compare
// equal. The helpers are pure and safe to reuse from presentation layers
// matching user-typed queries.
package rooms

import (
	"regexp"
	"strconv"
	"strings"
)

// OnlineRoomMarker tags virtual classes in the feed. Rooms carrying it are
// never physical locations and are hidden from free-room listings.
const OnlineRoomMarker = "ONLMCO3"

var (
	auditoriumRe = regexp.MustCompile(`(?i)^audi(?:torium)?\s*(\d+)\s*(?:@\s*level\s*(\d+)\s*)?$`)
	blockRoomRe  = regexp.MustCompile(`(?i)^([a-z])[\s-]?(\d{2})[\s-]?(\d{2})$`)
	techLabRe    = regexp.MustCompile(`(?i)^tech\s*lab\s*(\d+)[\s-]?(\d{2})$`)
	levelSuffix  = regexp.MustCompile(`(?i)@\s*level\s*(\d+)`)
)

// Normalize returns the canonical display form of a room string.
//
// Auditorium variants ("Audi 2", "AUDI2", "Auditorium 2 @ Level 6") collapse
// to "Auditorium 2"; block-floor-room codes ("b 06 12") become "B-06-12";
// tech lab variants become "Tech Lab N-NN"; anything else is title-cased.
// Normalize is idempotent.
func Normalize(raw string) string {
	room := strings.TrimSpace(raw)
	if room == "" {
		return ""
	}
	if !IsPhysical(room) {
		// Keep the sentinel token intact so downstream filters still see it.
		return room
	}

	if m := auditoriumRe.FindStringSubmatch(room); m != nil {
		return "Auditorium " + m[1]
	}
	if m := blockRoomRe.FindStringSubmatch(room); m != nil {
		return strings.ToUpper(m[1]) + "-" + m[2] + "-" + m[3]
	}
	if m := techLabRe.FindStringSubmatch(room); m != nil {
		return "Tech Lab " + m[1] + "-" + m[2]
	}

	return titleCase(room)
}

// SearchKey returns the case-folded canonical form used for comparisons and
// stored-for-search matching. SearchKey(SearchKey(x)) == SearchKey(x).
func SearchKey(raw string) string {
	return strings.ToLower(Normalize(raw))
}

// Level extracts the floor from an "@ Level M" suffix when present. The
// suffix is dropped from the search key but callers may keep it for grouping
// rooms by floor.
func Level(raw string) (int, bool) {
	m := levelSuffix.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return level, true
}

// IsPhysical reports whether the room is a real location rather than the
// online-class sentinel.
func IsPhysical(raw string) bool {
	return !strings.Contains(strings.ToUpper(raw), OnlineRoomMarker)
}

func titleCase(room string) string {
	words := strings.Fields(room)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
