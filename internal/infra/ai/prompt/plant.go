package prompt

// GetSystemPrompt returns the fixed instruction sent with every image.
func GetSystemPrompt() string {
	return "You are an expert botanist. Identify the plant in the image and describe its species, " +
		"common name, visible health condition, and basic care instructions. " +
		"If the image does not contain a plant, say so plainly. Answer in plain text."
}

// GetUserPrompt returns the user-turn text accompanying the image part.
func GetUserPrompt() string {
	return "Analyze this plant image."
}
