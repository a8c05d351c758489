package ai

// Content generation prompts
const (
	// ContentPrompt asks for a full blog post. Args: title, description.
	ContentPrompt = `Write a comprehensive, informative blog post about '%s'. Additional context: %s

The blog post should be well-structured with an introduction, multiple paragraphs with interesting information, and a conclusion. Make it engaging and informative for readers interested in this topic. Use a professional tone and include factual information where appropriate.`

	// TranslationPrompt asks for a translation of an existing post.
	// Args: target language, content.
	TranslationPrompt = `Translate the following blog post content into %s. Maintain the same formatting and structure, but ensure the translation sounds natural and fluent in the target language:

%s`
)

// Image prompts
const (
	// ImagePromptRequest asks the chat model for a text-to-image prompt.
	// Args: title, description, style hint.
	ImagePromptRequest = `Create a detailed image generation prompt that would produce a visually appealing image representing the blog topic: '%s'. %s

The image should be %s, suitable for a business blog, and visually represent the key concepts of this topic. Make the prompt detailed and specific for best results.`
)
