package config

// Per-1M-token list prices, expressed per token.
func defaultTokenPrices() map[string]TokenPrice {
	return map[string]TokenPrice{
		"gpt-4o":      {Input: 5.0 / 1e6, Output: 15.0 / 1e6},
		"gpt-4o-mini": {Input: 0.15 / 1e6, Output: 0.6 / 1e6},
	}
}

// Conservative fallback rate for models missing from the table.
var defaultTokenPrice = TokenPrice{Input: 0.0001, Output: 0.0002}

// Base system prompts per output style. Stage-specific framing (part i of N,
// step counters, section titles) is appended by the pipeline at call time.
var defaultPrompts = map[string]string{
	"bullet_points": `Transform this transcript into concise bullet points.
Focus on key information, main ideas, and important details.
Use clear, direct language and standard bullet point formatting.
Maintain the logical flow of information.
Ensure bullet points are non-repetitive and build on each other.`,

	"summary": `Create a concise summary of this transcript.
Capture the main ideas and essential information.
Maintain the original meaning while condensing the content.
Aim for clarity and brevity.
Ensure a coherent flow of information throughout the summary.`,

	"step_by_step": `Transform this transcript into a detailed, step-by-step guide.
Organize the content into logical steps or phases.
Include relevant background information and context.
Make the guide clear and actionable for someone who wants to follow along.
Ensure steps are numbered sequentially and build naturally on each other.
Avoid repeating information across steps.`,

	"podcast_article": `Transform this transcript into a well-structured article or podcast script.
Use engaging, conversational language.
Organize content with clear paragraphs and smooth transitions.
Include relevant context and maintain a narrative flow.
Ensure ideas connect logically from one paragraph to the next.`,
}
