package template

import (
	"context"
	"fmt"
	"strings"

	"questforge/internal/app/ports"
)

// Narrator produces deterministic replies from the player's context. It
// serves offline demos and tests, and its phrasing doubles as the shape of
// the chat fallback path.
type Narrator struct{}

func (Narrator) Reply(_ context.Context, _ string, message string, nc ports.NarratorContext) (ports.NarratorReply, error) {
	reply := ports.NarratorReply{Intents: inferIntents(message, nc)}
	switch {
	case nc.ActiveQuest != "" && len(nc.OpenSteps) > 0:
		reply.Text = fmt.Sprintf("%s, the %s hums around you. %q still needs you to: %s.",
			title(nc), nc.Location, nc.ActiveQuest, strings.Join(nc.OpenSteps, "; "))
	case nc.ActiveQuest != "":
		reply.Text = fmt.Sprintf("%s, every step of %q is done. Claim your reward.",
			title(nc), nc.ActiveQuest)
	default:
		reply.Text = fmt.Sprintf("%s, the %s is calm. The quest board has work for a %s.",
			title(nc), nc.Location, nc.Tier)
	}
	return reply, nil
}

func title(nc ports.NarratorContext) string {
	if nc.DisplayName != "" {
		return nc.DisplayName
	}
	return "traveler"
}

// inferIntents does shallow keyword matching so natural-language progress
// reports ("I finished finding allies") advance the quest even without the
// external provider.
func inferIntents(message string, nc ports.NarratorContext) []ports.Intent {
	lower := strings.ToLower(message)
	if nc.ActiveQuest == "" {
		return nil
	}
	if strings.Contains(lower, "finished") || strings.Contains(lower, "done with") || strings.Contains(lower, "completed") {
		if len(nc.OpenSteps) == 0 {
			return []ports.Intent{{Action: "COMPLETE_QUEST"}}
		}
	}
	return nil
}
