package advisor

import "fmt"

func emptyStatePrompt(item, action string) string {
	return fmt.Sprintf(`User searched for %q to %s but found no results.
Suggest 2-3 helpful alternatives or explain why (1-2 sentences).
Return ONLY plain text suggestion.
Example: "Try searching for broader terms like 'electronics' or check online platforms like Craigslist."
Your response:`, item, action)
}

func ecoTipPrompt(item, action string) string {
	return fmt.Sprintf(`Generate a short, interesting eco-fact or tip about %s %q.
Make it 1-2 sentences, start with "%s" emoji, and be specific about environmental impact or benefits.
Example: "%s Recycling one aluminum can saves enough energy to power a TV for 3 hours!"
Your response:`, gerund(action), item, TipPrefix, TipPrefix)
}

func actionPrompt(item string, category Category) string {
	return fmt.Sprintf(`For the item %q (category: %s), which action is most beneficial: Reuse, Reduce, or Recycle?
Provide a brief reason (1 sentence).
Return ONLY a JSON object: {"action": "Reuse|Reduce|Recycle", "reason": "brief explanation"}
Your response:`, item, category)
}

func autocompletePrompt(partial string) string {
	return fmt.Sprintf(`Given this partial input: %q, suggest %d complete, common items that people might want to reuse, recycle, or repair.
Return ONLY a JSON array of strings. Be specific and practical.
Example: ["laptop computer", "plastic water bottles", "old clothing"]
Your response:`, partial, MaxSuggestions)
}

// classifyPrompt and describePrompt lead with the item so that prompts for
// different items get different response cache keys.
func classifyPrompt(item string) string {
	return "Item: " + item + "\n" +
		"Which category does this item belong to? You must respond with exactly one of these category names, nothing else: E-waste, Fashion, Tools. " +
		"Reply with only the category name."
}

func describePrompt(item string) string {
	return fmt.Sprintf(`Item: %q
Write a short, friendly 2-3 sentence description for someone lending out this item.
Include condition (assume good), what it's useful for, and why someone might want to borrow it.
Keep it casual and inviting. Do not include a title or item name at the start.`, item)
}

// gerund turns an action verb into its -ing form for prompts.
func gerund(action string) string {
	switch action {
	case "":
		return "reusing"
	case "recycle":
		return "recycling"
	case "repair":
		return "repairing"
	case "borrow":
		return "borrowing"
	case "reuse":
		return "reusing"
	default:
		return action + "ing"
	}
}
