package db

import (
	"fmt"

	"agent-arena/pkg/models"
	"agent-arena/pkg/scoring"

	"github.com/google/uuid"
)

// catalogNamespace derives stable program and drill IDs so reseeding a
// database never changes them.
var catalogNamespace = uuid.MustParse("6f1c2a52-8d0e-4f7b-9a63-3c1f4b2e7d10")

type drillSeed struct {
	title      string
	difficulty int
	input      string
}

type programSeed struct {
	slug          string
	title         string
	description   string
	challengeType scoring.ChallengeType
	drills        []drillSeed
}

var defaultCatalog = []programSeed{
	{
		slug:          "logic-bootcamp",
		title:         "Logic Bootcamp",
		description:   "Master analytical reasoning and logical problem-solving with progressively challenging puzzles. Your agent will learn to break down complex problems, identify patterns, and arrive at correct conclusions through structured thinking.",
		challengeType: scoring.Logic,
		drills: []drillSeed{
			{"Basic Syllogisms", 1, "If all cats are mammals and all mammals are animals, are all cats animals? Explain your reasoning step by step."},
			{"Transitive Logic", 1, "If all Bloops are Razzies and all Razzies are Lazzies, are all Bloops definitely Lazzies? Show your work."},
			{"Conditional Reasoning", 2, "If it rains, the ground gets wet. The ground is wet. Did it rain? Explain why or why not."},
			{"Series Completion", 2, "Complete the pattern: 2, 6, 12, 20, 30, ?. What is the next number and why?"},
			{"Logical Matrix", 3, "In a 3x3 grid, each row contains a circle, square, and triangle. Each column also contains one of each shape. If the top-left is a circle and center is a square, what's in bottom-right?"},
			{"Deductive Puzzle", 3, "Three boxes contain: red ball, blue ball, one of each. All labels are wrong. The 'red' box contains a blue ball. What's in the 'both' box?"},
			{"Categorical Logic", 4, "Some A are B. All B are C. Some C are D. What can we conclude about A and D? Explain."},
			{"Advanced Syllogism", 4, "If X implies Y, and not-Y implies not-Z, and Z is true, what can we conclude about X? Show the logical chain."},
			{"Multi-Step Inference", 5, "A is taller than B. C is shorter than B. D is taller than A. E is shorter than C but taller than F. Order A, B, C, D, E, F by height."},
			{"Complex Reasoning", 5, "In a tournament of 8 players where each plays each other once, and 3 players have 6 wins, 2 players have 4 wins, and 3 players have 2 wins. Is this possible? Explain."},
		},
	},
	{
		slug:          "debate-mastery",
		title:         "Debate Mastery",
		description:   "Develop persuasive argumentation skills and the ability to construct compelling cases. Your agent will learn to present clear claims, support them with evidence and reasoning, and acknowledge counterarguments.",
		challengeType: scoring.Debate,
		drills: []drillSeed{
			{"Basic Claim Structure", 1, "Topic: Should homework be banned in schools? Stance: Pro. Construct a basic argument with a clear claim."},
			{"Adding Evidence", 1, "Topic: Remote work vs. Office work. Stance: Remote work is better. Present your claim with supporting reasons."},
			{"Counterarguments", 2, "Topic: Should voting be mandatory? Stance: Yes. Present your argument AND acknowledge at least one counterargument."},
			{"Example Integration", 2, "Topic: Social media's impact on society. Stance: Negative. Use specific examples to support your position."},
			{"Nuanced Position", 3, "Topic: Artificial Intelligence development. Stance: Caution. Present a balanced view while maintaining your core position."},
			{"Multiple Perspectives", 3, "Topic: Universal Basic Income. Stance: Support. Address economic, social, and practical dimensions."},
			{"Strong Rebuttals", 4, "Topic: Climate change policies. Stance: Immediate action needed. Anticipate and refute the strongest argument against your position."},
			{"Historical Analogies", 4, "Topic: Internet regulation. Stance: Limited regulation. Use historical parallels to strengthen your case."},
			{"Complex Stakeholders", 5, "Topic: Gene editing in humans. Stance: Conditional approval. Address concerns from medical, ethical, and social perspectives."},
			{"Master Argument", 5, "Topic: Should humanity actively attempt to contact extraterrestrial civilizations? Take a strong stance and construct the most comprehensive argument possible."},
		},
	},
	{
		slug:          "creativity-lab",
		title:         "Creativity Lab",
		description:   "Unlock creative potential with exercises that challenge your agent to generate original, engaging content. Learn to structure creative pieces, use varied vocabulary, and meet specific constraints.",
		challengeType: scoring.Creativity,
		drills: []drillSeed{
			{"Short Story Opening", 1, "Write the opening of a story about a clock that runs backward. Include a title and at least 3 paragraphs."},
			{"Character Description", 1, "Describe a character who can speak to machines. Give them a name, physical appearance, and unique ability. Structure in 3 parts."},
			{"World Building", 2, "Create a fictional world where gravity is optional. Describe the society, buildings, and daily life. Use title and clear sections."},
			{"Dialogue Scene", 2, "Write a conversation between a time traveler and their past self. Include narrative description. Structure with 3 distinct sections."},
			{"Poetic Expression", 3, "Write about 'the last train home' using vivid imagery and metaphor. Include a title and at least 4 stanzas."},
			{"Alternate History", 3, "Describe a world where the internet was invented in 1890. Focus on technology, culture, and daily life. Use creative structure."},
			{"Genre Mashup", 4, "Write a sci-fi detective story opening. Combine elements from both genres creatively. Title plus 3+ sections required."},
			{"Emotional Journey", 4, "Tell a complete story about losing and finding something precious, in exactly 5 numbered parts, each conveying a different emotion."},
			{"Experimental Format", 5, "Write about 'a message from the future' using an unconventional format (e.g., chat logs, diary entries, tweets). Must include title and 3+ sections."},
			{"Magnum Opus", 5, "Write a complete short story about 'the museum of forgotten dreams'. Must have: title, 3+ chapters, varied vocabulary, and emotional resonance. Minimum 300 words."},
		},
	},
}

// DefaultPrograms returns the built-in training catalog: one ten-drill
// program per challenge type.
func DefaultPrograms() []models.Program {
	programs := make([]models.Program, 0, len(defaultCatalog))
	for _, seed := range defaultCatalog {
		programID := uuid.NewSHA1(catalogNamespace, []byte("program/"+seed.slug)).String()
		program := models.Program{
			ID:            programID,
			Slug:          seed.slug,
			Title:         seed.title,
			Description:   seed.description,
			ChallengeType: seed.challengeType,
			Drills:        make([]models.Drill, 0, len(seed.drills)),
		}
		for i, d := range seed.drills {
			program.Drills = append(program.Drills, models.Drill{
				ID:          uuid.NewSHA1(catalogNamespace, []byte(fmt.Sprintf("drill/%s/%d", seed.slug, i+1))).String(),
				ProgramID:   programID,
				OrderIndex:  i + 1,
				Title:       d.title,
				Difficulty:  d.difficulty,
				PresetInput: d.input,
			})
		}
		programs = append(programs, program)
	}
	return programs
}
