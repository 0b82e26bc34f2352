package models

// Flashcard is a single question/answer pair
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizItem is a multiple-choice question with four options
type QuizItem struct {
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// PlanItem is one study session of the plan, in study order
type PlanItem struct {
	Day        int      `json:"day"`
	Topic      string   `json:"topic"`
	Activities []string `json:"activities"`
	Minutes    int      `json:"estimated_minutes"`
}

// ReaderSummary is persisted after each upload
type ReaderSummary struct {
	ChunksCount int      `json:"chunks_count"`
	Sample      []string `json:"sample"`
}

type GenerateSummary struct {
	Flashcards int `json:"flashcards"`
	Quizzes    int `json:"quizzes"`
	PlanItems  int `json:"plan_items"`
}

type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}
