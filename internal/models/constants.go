package models

const (
	FlashcardsFile    = "flashcards.json"
	QuizzesFile       = "quizzes.json"
	PlannerFile       = "planner.json"
	ReaderSummaryFile = "reader_summary.json"

	SummarySampleSize = 3
	DefaultTopic      = "Topic"
)

var (
	FlashcardPromptTemplate = `You are a flashcard generator for students.
Produce concise flashcards from the study material below.
Return ONLY a JSON array of objects with the keys "question" and "answer".

<material>
%s
</material>
`

	QuizPromptTemplate = `You are an instructor writing a multiple-choice quiz.
Write MCQ questions that test understanding of the study material below.
Each question has exactly 4 options and one correct answer taken from the options.
Rate each question with a "difficulty" of Easy, Medium or Hard.
Return ONLY a JSON array of objects with the keys "question", "options", "answer" and "difficulty".

<material>
%s
</material>
`

	PlanActivities = []string{
		"Read the section",
		"Review flashcards",
		"Take the quiz",
	}
)
