package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// TaskType identifies the write operation a task performs.
type TaskType string

const (
	TaskEdit   TaskType = "edit"
	TaskMove   TaskType = "move"
	TaskDelete TaskType = "delete"
)

// Task is one write operation in a batch plan.
type Task struct {
	Type     TaskType `yaml:"type"`
	Title    string   `yaml:"title"`
	NewTitle string   `yaml:"new_title"`
	Text     string   `yaml:"text"`
	Summary  string   `yaml:"summary"`
	Reason   string   `yaml:"reason"`
	Minor    bool     `yaml:"minor"`
	// BestEffort diverts fatal per-page errors (protection, mostly)
	// to the log instead of failing the task.
	BestEffort bool `yaml:"best_effort"`
}

// Plan is a batch of tasks executed with bounded concurrency.
type Plan struct {
	Name        string `yaml:"name"`
	Concurrency int    `yaml:"concurrency"`
	Tasks       []Task `yaml:"tasks"`
}

// LoadPlan reads a batch plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	if plan.Concurrency <= 0 {
		plan.Concurrency = 4
	}

	for i, task := range plan.Tasks {
		if err := validateTask(task); err != nil {
			return nil, fmt.Errorf("plan task %d: %w", i+1, err)
		}
	}
	return &plan, nil
}

func validateTask(task Task) error {
	if task.Title == "" {
		return fmt.Errorf("title is required")
	}
	switch task.Type {
	case TaskEdit:
		if task.Text == "" {
			return fmt.Errorf("edit task needs text")
		}
	case TaskMove:
		if task.NewTitle == "" {
			return fmt.Errorf("move task needs new_title")
		}
	case TaskDelete:
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
	return nil
}
