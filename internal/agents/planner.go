package agents

import (
	"strings"

	"study-rag/internal/helper"
	"study-rag/internal/models"
)

const minutesPerTopic = 30

// PlannerAgent lays topics out as one study session per day
type PlannerAgent struct{}

func NewPlannerAgent() *PlannerAgent {
	return &PlannerAgent{}
}

func (PlannerAgent) PlanTopics(topics []string) []models.PlanItem {
	plan := make([]models.PlanItem, 0, len(topics))
	for i, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			topic = models.DefaultTopic
		}
		activities := make([]string, len(models.PlanActivities))
		copy(activities, models.PlanActivities)
		plan = append(plan, models.PlanItem{
			Day:        i + 1,
			Topic:      topic,
			Activities: activities,
			Minutes:    minutesPerTopic,
		})
	}
	return plan
}

// TopicsFromChunks uses the first line of each chunk, cut to maxChars, as its topic
func TopicsFromChunks(chunks []string, maxChars int) []string {
	topics := make([]string, 0, len(chunks))
	for _, c := range chunks {
		first, _, _ := strings.Cut(c, "\n")
		first = helper.Truncate(first, maxChars)
		if first == "" {
			first = models.DefaultTopic
		}
		topics = append(topics, first)
	}
	return topics
}
