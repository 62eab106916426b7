package prompts

func transcriptOf(in Input) string { return in.Transcript }

func RegisterAll() {
	// ---------- Summary ----------

	RegisterSpec(Spec{
		Name:    PromptSummaryStrict,
		Version: 1,
		Text: `
Summarize the following video transcript.
IMPORTANT: You must respond with a valid JSON object in the exact format specified below, with no additional text or explanation.

<VideoTranscript>
{{.Transcript}}
</VideoTranscript>

Required JSON format:
{
  "summary": "Concise summary of the whole video",
  "main_points": [
    {
      "timestamp": "MM:SS",
      "title": "Short title of the point",
      "description": "One or two sentences describing the point"
    }
  ]
}

Rules:
1. The response must be a valid JSON object
2. "summary" must be a non-empty string of 2-5 sentences
3. "main_points" must contain 3-5 entries, in the order they occur in the video
4. Every main point must have a non-empty timestamp, title and description
5. Timestamps must use MM:SS format and must match a timestamp shown in the transcript
6. Do not include any text outside the JSON object

Example response for a short cooking video:
{
  "summary": "The host prepares a simple tomato pasta. She explains ingredient choice, cooks the sauce and finishes with plating tips.",
  "main_points": [
    {"timestamp": "00:12", "title": "Ingredients", "description": "Ripe tomatoes, garlic and good olive oil are the base of the sauce."},
    {"timestamp": "02:40", "title": "Cooking the sauce", "description": "Garlic is softened in oil before the tomatoes simmer for ten minutes."},
    {"timestamp": "06:05", "title": "Plating", "description": "Pasta is tossed in the sauce and topped with basil before serving."}
  ]
}`,
		Validators: []Validator{
			RequireNonEmpty("Transcript", transcriptOf),
		},
	})

	RegisterSpec(Spec{
		Name:    PromptSummaryFallback,
		Version: 1,
		Text: `
Summarize this video transcript. Reply with JSON only:
{"summary": "...", "main_points": [{"timestamp": "MM:SS", "title": "...", "description": "..."}]}

<VideoTranscript>
{{.Transcript}}
</VideoTranscript>`,
		Validators: []Validator{
			RequireNonEmpty("Transcript", transcriptOf),
		},
	})

	// ---------- Topics ----------

	RegisterSpec(Spec{
		Name:    PromptTopicsStrict,
		Version: 1,
		Text: `
Analyze the following video transcript and identify the main topics discussed.
IMPORTANT: You must respond with a valid JSON object in the exact format specified below, with no additional text or explanation.

<VideoTranscript>
{{.Transcript}}
</VideoTranscript>

Required JSON format:
{
  "topics": [
    {
      "name": "Topic name",
      "description": "Brief description of the topic",
      "mentions": [
        {
          "timestamp": "MM:SS",
          "context": "Brief context of when this topic was mentioned"
        }
      ]
    }
  ]
}

Rules:
1. The response must be a valid JSON object
2. Identify 3-5 main topics
3. For each topic, include 1-3 key mentions with timestamps; "mentions" must never be empty
4. Use MM:SS format for timestamps
5. Keep descriptions and context concise and non-empty
6. Do not include any text outside the JSON object

Example response for a short cooking video:
{
  "topics": [
    {"name": "Ingredients", "description": "Choosing tomatoes, garlic and oil.", "mentions": [{"timestamp": "00:12", "context": "Host lists what she bought"}]},
    {"name": "Sauce technique", "description": "How long and how hot to cook the sauce.", "mentions": [{"timestamp": "02:40", "context": "Garlic goes into warm oil"}, {"timestamp": "04:10", "context": "Tomatoes simmer"}]},
    {"name": "Serving", "description": "Finishing and plating the dish.", "mentions": [{"timestamp": "06:05", "context": "Basil is added on top"}]}
  ]
}`,
		Validators: []Validator{
			RequireNonEmpty("Transcript", transcriptOf),
		},
	})

	RegisterSpec(Spec{
		Name:    PromptTopicsFallback,
		Version: 1,
		Text: `
List the topics discussed in this video transcript. Reply with JSON only:
{"topics": [{"name": "...", "description": "...", "mentions": [{"timestamp": "MM:SS", "context": "..."}]}]}

<VideoTranscript>
{{.Transcript}}
</VideoTranscript>`,
		Validators: []Validator{
			RequireNonEmpty("Transcript", transcriptOf),
		},
	})
}
