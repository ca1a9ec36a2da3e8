package quest

// DefaultCatalog is the quest set seeded into every new player state. The
// admin surface can swap it out; the engine only cares that templates are
// immutable once seeded.
func DefaultCatalog() []Template {
	return []Template{
		{
			ID:          "gather-allies",
			Title:       "Gather Your Allies",
			Description: "Recruit three companions from the tavern before nightfall.",
			Steps: []Step{
				{ID: "find-allies", Description: "Find three willing companions"},
				{ID: "pledge", Description: "Seal the pact over a shared meal"},
			},
			RewardScore: 120,
			RewardItems: []string{"banner-of-fellowship"},
		},
		{
			ID:          "map-the-caverns",
			Title:       "Map the Sunken Caverns",
			Description: "Chart the flooded passages below the old mill.",
			Steps: []Step{
				{ID: "buy-lantern", Description: "Acquire a storm lantern"},
				{ID: "survey-east", Description: "Survey the eastern passage"},
				{ID: "survey-west", Description: "Survey the western passage"},
			},
			RewardScore: 250,
			RewardItems: []string{"cavern-map", "storm-lantern"},
		},
		{
			ID:          "council-of-sparks",
			Title:       "Council of Sparks",
			Description: "Convince the artificers' council to open the archive.",
			Steps: []Step{
				{ID: "draft-petition", Description: "Draft the petition"},
				{ID: "win-vote", Description: "Win the council vote"},
			},
			RewardScore: 500,
			RewardItems: []string{"archive-key"},
		},
	}
}
