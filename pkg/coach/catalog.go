package coach

import "agent-arena/pkg/scoring"

// minDrills is the drill count below which the generic fillers are appended.
const minDrills = 3

type advice struct {
	weakness   string
	suggestion string
}

// bonusRule ties a scoring bonus to its feedback. adviceFor, when set,
// replaces advice and may decline to emit anything.
type bonusRule struct {
	key       string
	strength  string
	advice    advice
	adviceFor func(outputLength int) (advice, bool)
	drill     NextDrill
}

type penaltyRule struct {
	key        string
	value      int
	weakness   string
	suggestion string
}

type catalog struct {
	bonuses         []bonusRule
	penalties       []penaltyRule
	genericStrength string
	fillers         []NextDrill
}

var catalogs = map[scoring.ChallengeType]catalog{
	scoring.Logic:      logicCatalog,
	scoring.Debate:     debateCatalog,
	scoring.Creativity: creativityCatalog,
}

var logicCatalog = catalog{
	bonuses: []bonusRule{
		{
			key:      scoring.KeyAnswerBonus,
			strength: "Clear answer formatting with 'Answer:' label",
			advice: advice{
				weakness:   "Missing clear 'Answer:' label - add explicit answer section",
				suggestion: "Try this prompt: 'Provide a step-by-step analysis, then conclude with Answer: [your conclusion]'",
			},
			drill: NextDrill{
				ChallengeType: scoring.Logic,
				PresetTitle:   "Final Answer Practice",
				PresetInput:   "Analyze the following systematically: If all A are B and all B are C, are all A definitely C? Provide your reasoning, then end with 'Answer: Yes' followed by your conclusion.",
			},
		},
		{
			key:      scoring.KeyStructureBonus,
			strength: "Well-organized with bullet points or numbered steps",
			advice: advice{
				weakness:   "Lacks structured format - use bullets or numbered steps",
				suggestion: "Try this prompt: 'Structure your response with: 1) Analysis, 2) Reasoning, 3) Conclusion'",
			},
			drill: NextDrill{
				ChallengeType: scoring.Logic,
				PresetTitle:   "Structured Reasoning",
				PresetInput:   "Solve this step-by-step: In a tournament, 8 teams play each other once. If 3 teams have 6 wins, 2 teams have 4 wins, and 3 teams have 2 wins, is this possible? Provide: 1) Setup, 2) Analysis, 3) Conclusion.",
			},
		},
		{
			key:       scoring.KeyLengthBonus,
			strength:  "Optimal response length (80-600 characters)",
			adviceFor: logicLengthAdvice,
			drill: NextDrill{
				ChallengeType: scoring.Logic,
				PresetTitle:   "Detailed Analysis",
				PresetInput:   "Explain the transitive property with a concrete example. Structure your answer with clear reasoning steps and a final Answer: summary.",
			},
		},
	},
	penalties: []penaltyRule{
		{
			key:        scoring.KeySpamPenalty,
			value:      scoring.SpamPenalty,
			weakness:   "Repetitive content detected - vary your language",
			suggestion: "Try this prompt: 'Use varied vocabulary and avoid repeating phrases'",
		},
	},
	genericStrength: "Solid foundational logic skills",
	fillers: []NextDrill{
		{
			ChallengeType: scoring.Logic,
			PresetTitle:   "Syllogism Practice",
			PresetInput:   "Analyze this syllogism: Some cats are black. All black objects absorb light. Are all cats black? Provide 1) Analysis of premises, 2) Logical evaluation, 3) Answer: Yes/No.",
		},
		{
			ChallengeType: scoring.Logic,
			PresetTitle:   "Pattern Recognition",
			PresetInput:   "What comes next: 2, 6, 12, 20, 30, ? Analyze the pattern and explain your reasoning step-by-step, then provide Answer: [next number].",
		},
	},
}

// logicLengthAdvice distinguishes short from verbose output. Output inside
// the bonus range gets no length advice.
func logicLengthAdvice(outputLength int) (advice, bool) {
	switch {
	case outputLength < 80:
		return advice{
			weakness:   "Response too short - expand analysis",
			suggestion: "Try this prompt: 'Provide detailed analysis with at least 3-4 specific points'",
		}, true
	case outputLength > 600:
		return advice{
			weakness:   "Response too verbose - be more concise",
			suggestion: "Try this prompt: 'Concisely analyze the problem in under 600 characters, focusing on key insights'",
		}, true
	}
	return advice{}, false
}

var debateCatalog = catalog{
	bonuses: []bonusRule{
		{
			key:      scoring.KeyClaimBonus,
			strength: "Clear position statement with 'Claim:' label",
			advice: advice{
				weakness:   "Missing clear position statement - start with 'Claim:'",
				suggestion: "Try this prompt: 'Start with Claim: [your position], then provide 2-3 supporting reasons'",
			},
			drill: NextDrill{
				ChallengeType: scoring.Debate,
				PresetTitle:   "Position Statement",
				PresetInput:   "Topic: Should homework be banned? Start with 'Claim: [Yes or No]', then provide 3 reasons to support your position.",
			},
		},
		{
			key:      scoring.KeyCounterargumentBonus,
			strength: "Acknowledges opposing views with 'However' or 'On the other hand'",
			advice: advice{
				weakness:   "No counterarguments - acknowledge opposing views",
				suggestion: "Try this prompt: 'State your position, then acknowledge opposing views with However... [rebuttal]'",
			},
			drill: NextDrill{
				ChallengeType: scoring.Debate,
				PresetTitle:   "Balanced Arguments",
				PresetInput:   "Topic: Remote work vs. Office work. Take a position, acknowledge the opposing view with 'However...', then provide a rebuttal.",
			},
		},
		{
			key:      scoring.KeyExampleBonus,
			strength: "Supports arguments with concrete examples",
			advice: advice{
				weakness:   "Lacks supporting examples - add specific cases",
				suggestion: "Try this prompt: 'For each argument, include Example: [specific real-world case]'",
			},
			drill: NextDrill{
				ChallengeType: scoring.Debate,
				PresetTitle:   "Evidence-Based Debate",
				PresetInput:   "Topic: Social media's impact. Make a claim, support it with 'Example: [specific cases]', and conclude with a summary.",
			},
		},
	},
	genericStrength: "Strong debate foundation",
	fillers: []NextDrill{
		{
			ChallengeType: scoring.Debate,
			PresetTitle:   "Structured Argumentation",
			PresetInput:   "Pick a controversial topic. Structure your argument as: Claim: [position], Reason 1: [evidence], Reason 2: [evidence], However: [counterargument], Rebuttal: [response].",
		},
	},
}

var creativityCatalog = catalog{
	bonuses: []bonusRule{
		{
			key:      scoring.KeyTitleBonus,
			strength: "Includes creative title",
			advice: advice{
				weakness:   "Missing title - add a creative heading",
				suggestion: "Try this prompt: 'Write a story with Title: [creative name] at the top'",
			},
			drill: NextDrill{
				ChallengeType: scoring.Creativity,
				PresetTitle:   "Title Practice",
				PresetInput:   "Write a short story titled 'The Last Message'. Include a creative title, then tell the story of receiving an unexpected message that changes everything.",
			},
		},
		{
			key:      scoring.KeySectionBonus,
			strength: "Well-structured with 3+ sections",
			advice: advice{
				weakness:   "Lacks structure - divide into 3+ sections",
				suggestion: "Try this prompt: 'Structure your story with Part 1: Beginning, Part 2: Middle, Part 3: End'",
			},
			drill: NextDrill{
				ChallengeType: scoring.Creativity,
				PresetTitle:   "Structured Story",
				PresetInput:   "Write a story titled 'Journey Home'. Divide it into: Part 1: The Departure, Part 2: The Challenge, Part 3: The Return, Part 4: The Aftermath.",
			},
		},
		{
			key:      scoring.KeyVarietyBonus,
			strength: "Rich vocabulary with good word variety",
			advice: advice{
				weakness:   "Limited vocabulary - use more diverse words",
				suggestion: "Try this prompt: 'Use rich, varied vocabulary throughout your writing'",
			},
			drill: NextDrill{
				ChallengeType: scoring.Creativity,
				PresetTitle:   "Vocabulary Challenge",
				PresetInput:   "Write about 'A World Without Technology'. Use diverse, descriptive language throughout. Include Title: at the top and 3+ sections.",
			},
		},
	},
	penalties: []penaltyRule{
		{
			key:        scoring.KeyTooShortPenalty,
			value:      scoring.ShortPenalty,
			weakness:   "Story too short - expand narrative",
			suggestion: "Try this prompt: 'Write a detailed narrative (at least 80 characters) with vivid descriptions'",
		},
	},
	genericStrength: "Strong creative foundation",
	fillers: []NextDrill{
		{
			ChallengeType: scoring.Creativity,
			PresetTitle:   "Imaginative Prompt",
			PresetInput:   "Write a story where the main character discovers they can communicate with objects. Title: 'The Whispering Objects'. Structure with 3+ sections.",
		},
	},
}
