package packets

import "github.com/mcdev12/quizbowl/go/internal/models"

func pyramidal(id, answer string, clues ...string) models.Question {
	return models.Question{ID: id, Kind: models.QuestionKindPyramidal, Clues: clues, Answer: answer}
}

func flat(id, text, answer string, category models.Category) models.Question {
	return models.Question{ID: id, Kind: models.QuestionKindFlat, Text: text, Answer: answer, Category: category}
}

// defaultQuestions keep a room playable when no packet files are available.
var defaultQuestions = map[models.Format][]models.Question{
	models.FormatNAQT: {
		pyramidal("naqt-001", "Waterloo",
			"This 1815 battle saw Napoleon defeated after Blücher's Prussians arrived to support Wellington.",
			"Fought in Belgium, it ended the Hundred Days and led to exile on Saint Helena.",
			"Name the battle where Napoleon was defeated by Wellington: Battle of ________.",
		),
		pyramidal("naqt-002", "Photosynthesis",
			"This process involves the Calvin cycle and the enzyme RuBisCO.",
			"It converts carbon dioxide and water into glucose and oxygen in chloroplasts.",
			"Plants make food using sunlight in a process called ________.",
		),
	},
	models.FormatFroshmore: {
		pyramidal("fro-001", "Mitochondria",
			"This organelle contains cristae and performs oxidative phosphorylation.",
			"It has its own DNA and is known as the powerhouse of the cell.",
			"Name the organelle famous as the cell's powerhouse: ________.",
		),
	},
	models.FormatOSSAA: {
		pyramidal("ossaa-001", "Red River",
			"This river forms a significant stretch of the Texas-Oklahoma border and flows into the Mississippi.",
			"Its name comes from the reddish silt; notable in the 1800s for navigation and commerce.",
			"Name the river that borders Oklahoma and Texas: the ________ River.",
		),
	},
	models.FormatTrivia: {
		flat("ai1", "Which ocean is the largest?", "Pacific Ocean", models.CategoryGeography),
		flat("ai2", "Who painted the Mona Lisa?", "Leonardo da Vinci", models.CategoryArt),
		flat("ai3", "What year did the Titanic sink?", "1912", models.CategoryHistory),
		flat("ai4", "Which metal has the chemical symbol Fe?", "Iron", models.CategoryScience),
		flat("ai5", "What is the tallest mountain in Africa?", "Mount Kilimanjaro", models.CategoryGeography),
	},
}

// Defaults returns a copy of the built-in questions for a format.
func Defaults(format models.Format) []models.Question {
	qs := defaultQuestions[format]
	out := make([]models.Question, len(qs))
	copy(out, qs)
	return out
}
