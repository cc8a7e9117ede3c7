package conversation

import "strings"

// The planner model multiplexes its conversational reply and a control
// signal through sentinel markers at the end of its text. parsePlannerReply
// turns that soft contract into an explicit result variant so the engine
// itself never string-matches.
type signalKind int

const (
	signalNone signalKind = iota
	signalOutlineReady
	signalBuildNow
	signalEditDetected
)

const (
	markerOutlineReady = "[READY_TO_OUTLINE]"
	markerBuildNow     = "[BUILD_NOW]"
	markerEditDetected = "[EDIT_DETECTED]"
)

type plannerReply struct {
	Kind signalKind
	// Text is the user-visible reply with all markers stripped.
	Text string
}

func parsePlannerReply(raw string) plannerReply {
	// When several markers appear at once, outline wins over build wins
	// over edit: a proposed outline must be confirmed before any build.
	kind := signalNone
	switch {
	case strings.Contains(raw, markerOutlineReady):
		kind = signalOutlineReady
	case strings.Contains(raw, markerBuildNow):
		kind = signalBuildNow
	case strings.Contains(raw, markerEditDetected):
		kind = signalEditDetected
	}

	text := raw
	for _, marker := range []string{markerOutlineReady, markerBuildNow, markerEditDetected} {
		text = strings.ReplaceAll(text, marker, "")
	}

	return plannerReply{Kind: kind, Text: strings.TrimSpace(text)}
}
