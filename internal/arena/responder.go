package arena

import (
	"hash/fnv"

	"agent-arena/pkg/scoring"
)

var responseTemplates = map[scoring.ChallengeType][]func(input string) string{
	scoring.Logic: {
		func(string) string {
			return "To solve this problem, I'll approach it step by step:\n\n" +
				"1. First, let me understand the given information.\n" +
				"2. Next, I'll analyze the relationships.\n" +
				"3. Finally, I'll reach a conclusion.\n\n" +
				"Answer: Based on the logical analysis, the conclusion is clear."
		},
		func(string) string {
			return "Step 1: Identify the key elements.\n" +
				"Step 2: Analyze the logical structure.\n" +
				"Step 3: Draw a conclusion.\n\n" +
				"Therefore, the answer is derived from valid reasoning."
		},
	},
	scoring.Debate: {
		func(input string) string {
			return "Claim: " + truncateRunes(input, 50) + "...\n\n" +
				"Reason: The evidence supports this position because of fundamental principles and practical considerations.\n\n" +
				"Example: In practice, we see this approach leading to better outcomes.\n\n" +
				"However, I acknowledge that opponents might argue... but I believe the stronger case is for my position."
		},
		func(string) string {
			return "My position on this topic is based on several key arguments:\n\n" +
				"1. First, there are practical considerations.\n" +
				"2. Second, ethical principles support this view.\n" +
				"3. Third, real-world examples demonstrate validity.\n\n" +
				"While others may disagree, I believe the preponderance of evidence favors this stance."
		},
	},
	scoring.Creativity: {
		func(string) string {
			return "Once upon a time, in a world not unlike our own, something extraordinary happened. " +
				"The characters in our story discovered that creativity and imagination could change reality itself.\n\n" +
				"As the story unfolds, we see how courage and innovation triumph over adversity. " +
				"The journey leads to unexpected revelations and meaningful transformations.\n\n" +
				"In the end, the true power of human spirit shines through."
		},
		func(string) string {
			return "In the vast tapestry of existence, there are moments that define who we are. This is one such moment.\n\n" +
				"The adventure begins with a simple discovery, but soon blossoms into an epic journey of self-discovery and wonder. " +
				"Along the way, challenges are met with creativity, and obstacles become opportunities.\n\n" +
				"The conclusion reminds us that within every challenge lies the seed of growth."
		},
	},
}

// TemplateResponse returns a canned agent response for the challenge type.
// The template is chosen from a hash of the input, so the same input always
// yields the same response.
func TemplateResponse(ct scoring.ChallengeType, input string) string {
	templates := responseTemplates[ct]
	if len(templates) == 0 {
		return ""
	}

	h := fnv.New32a()
	h.Write([]byte(input))
	return templates[int(h.Sum32()%uint32(len(templates)))](input)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
