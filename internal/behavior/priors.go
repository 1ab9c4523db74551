package behavior

// contextPriors holds the intent priors per scene context. A platform crowd
// is mostly static; a level crossing makes all intents equally likely.
var contextPriors = map[SceneContext]map[IntentState]float64{
	SceneLevelCrossing: {
		IntentStatic:      0.25,
		IntentLeaving:     0.25,
		IntentApproaching: 0.25,
		IntentCrossing:    0.25,
	},
	SceneCrossing: {
		IntentStatic:      0.25,
		IntentLeaving:     0.25,
		IntentApproaching: 0.25,
		IntentCrossing:    0.25,
	},
	ScenePlatform: {
		IntentStatic:      0.55,
		IntentLeaving:     0.25,
		IntentApproaching: 0.15,
		IntentCrossing:    0.05,
	},
	SceneOpenTrack: {
		IntentStatic:      0.40,
		IntentLeaving:     0.30,
		IntentApproaching: 0.20,
		IntentCrossing:    0.10,
	},
}

// ContextPriors returns the intent priors for a scene context. Unknown
// contexts default to open track.
func ContextPriors(scene SceneContext) map[IntentState]float64 {
	priors, ok := contextPriors[scene]
	if !ok {
		priors = contextPriors[SceneOpenTrack]
	}
	out := make(map[IntentState]float64, len(priors))
	for k, v := range priors {
		out[k] = v
	}
	return out
}
