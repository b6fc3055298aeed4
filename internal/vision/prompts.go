package vision

import "strings"

const navigationSystem = `You are a pair of eyes for a blind user.
Analyze the image stream and provide immediate navigation cues.

Priorities:
1. HAZARDS: Say "STOP" or "CAUTION" if there is immediate danger (stairs, traffic, hole).
2. PATH: Describe where to walk (e.g., "Path clear straight ahead", "Turn slightly right").
3. OBJECTS: Mention only obstacles in the way.
4. BREVITY: Maximum 10 words. Concise. Clear.`

const questionSystem = `You are a helpful visual assistant for a blind user.
The user is asking a question about the current scene.
Answer conversationally and directly.
If the answer is not visible, say so.
Keep answers under 2 sentences.`

func NavigationPrompt(tagNames []string) Prompt {
	system := navigationSystem
	if len(tagNames) > 0 {
		system += "\n\nThe user has saved these places: " + strings.Join(tagNames, ", ") +
			". If one of them is clearly visible, name it first."
	}
	return Prompt{
		System:      system,
		User:        "Describe the path and hazards.",
		Temperature: 0.4,
		MaxTokens:   100,
	}
}

func QuestionPrompt(question string) Prompt {
	return Prompt{
		System:      questionSystem,
		User:        question,
		Temperature: 0.6,
		MaxTokens:   150,
	}
}
