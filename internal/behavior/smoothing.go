package behavior

// DefaultIntentAlpha weights the current frame in intent smoothing.
const DefaultIntentAlpha = 0.7

// IntentHistoryLength bounds the per-track rolling intent history.
const IntentHistoryLength = 5

// SmoothIntent blends the raw posterior with the previous frame's and
// re-selects the argmax, which suppresses single-frame intent flips. The
// distraction probability is smoothed the same way; awareness reflects the
// current frame only.
func SmoothIntent(current Intent, history []Intent, alpha float64) Intent {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultIntentAlpha
	}
	if len(history) == 0 {
		current.Smoothed = true
		return current
	}
	prev := history[len(history)-1]

	probs := make(map[IntentState]float64, len(IntentStates))
	for _, s := range IntentStates {
		probs[s] = alpha*current.Probs[s] + (1-alpha)*prev.Probs[s]
	}
	state, conf := argmaxIntent(probs)

	return Intent{
		State:            state,
		Probs:            probs,
		ActionConfidence: conf,
		DistractionProb:  alpha*current.DistractionProb + (1-alpha)*prev.DistractionProb,
		AwarenessProb:    current.AwarenessProb,
		Smoothed:         true,
	}
}

// appendIntent pushes an intent onto a bounded history.
func appendIntent(history []Intent, in Intent) []Intent {
	history = append(history, in)
	if len(history) > IntentHistoryLength {
		history = history[len(history)-IntentHistoryLength:]
	}
	return history
}
