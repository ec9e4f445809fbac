// Package planning provides structured planning helpers for the task
// planner agent. Each tool returns an indented JSON document the model can
// reason over.
package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/google/uuid"
)

// Tool names.
const (
	PlanTasks        = "plan_tasks"
	AnalyzeReasoning = "analyze_reasoning"
	ObserveProgress  = "observe_progress"
	CompareResults   = "compare_results"
)

// Subtask is one step of a plan.
type Subtask struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Priority     int      `json:"priority"`
	Dependencies []string `json:"dependencies"`
}

// PlanMetrics summarizes a plan.
type PlanMetrics struct {
	TotalTasks           int      `json:"total_tasks"`
	EstimatedEffortHours int      `json:"estimated_effort_hours"`
	CriticalPath         []string `json:"critical_path"`
}

// Plan is the result of plan_tasks.
type Plan struct {
	ID        string      `json:"id"`
	Timestamp string      `json:"timestamp"`
	Goal      string      `json:"goal"`
	Context   string      `json:"context"`
	Phase     string      `json:"phase"`
	Status    string      `json:"status"`
	Subtasks  []Subtask   `json:"subtasks"`
	Metrics   PlanMetrics `json:"metrics"`
}

// OptionAnalysis is the evaluation of a single option.
type OptionAnalysis struct {
	Option string   `json:"option"`
	Pros   []string `json:"pros"`
	Cons   []string `json:"cons"`
	Risks  []string `json:"risks"`
	Score  float64  `json:"score"`
}

// Analysis is the result of analyze_reasoning.
type Analysis struct {
	DecisionQuestion string           `json:"decision_question"`
	Options          []OptionAnalysis `json:"options"`
	Recommendation   string           `json:"recommendation"`
}

// Observation is the result of observe_progress.
type Observation struct {
	ID                string   `json:"id"`
	Timestamp         string   `json:"timestamp"`
	TaskID            string   `json:"task_id"`
	Status            string   `json:"status"`
	CompletionPercent int      `json:"completion_percent"`
	Notes             string   `json:"notes"`
	NextSteps         []string `json:"next_steps"`
}

// Comparison is the result of compare_results.
type Comparison struct {
	Comparison struct {
		Expected string `json:"expected"`
		Actual   string `json:"actual"`
		Match    bool   `json:"match"`
	} `json:"comparison"`
	Gaps            []string `json:"gaps"`
	QualityScore    float64  `json:"quality_score"`
	Recommendations []string `json:"recommendations"`
}

// Planner exposes the planning tools. Now and NewID are overridable for
// deterministic output.
type Planner struct {
	Now   func() time.Time
	NewID func() string
}

// New creates a Planner backed by the wall clock and random UUIDs.
func New() *Planner {
	return &Planner{
		Now:   time.Now,
		NewID: func() string { return uuid.NewString() },
	}
}

// Tools returns a ToolBox with the planning tools.
func (p *Planner) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(p.planTool(), analyzeTool(), p.observeTool(), compareTool())
	return tb
}

func (p *Planner) stamp() string {
	return p.Now().Format(time.RFC3339)
}

func render(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(data), nil
}

func (p *Planner) planTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        PlanTasks,
		Description: "Break a goal down into prioritized subtasks with dependencies and an estimated effort. Use this at the beginning of complex workflows.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"goal":{"type":"string","description":"The main goal to achieve"},"context":{"type":"string","description":"Context and constraints for the task"}},"required":["goal","context"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Goal    string `json:"goal"`
				Context string `json:"context"`
			}
			if err := toolbox.Decode(PlanTasks, input, &in); err != nil {
				return "", err
			}
			return render(PlanTasks, p.Plan(in.Goal, in.Context))
		},
	}
}

// Plan builds the four-phase plan for goal.
func (p *Planner) Plan(goal, ctx string) Plan {
	steps := []struct{ name, desc string }{
		{"Analyze requirements", "Break down the goal into specific requirements"},
		{"Design solution", "Create high-level design approach"},
		{"Execute plan", "Implement the designed solution"},
		{"Validate results", "Verify the solution meets requirements"},
	}

	plan := Plan{
		ID:        p.NewID(),
		Timestamp: p.stamp(),
		Goal:      goal,
		Context:   ctx,
		Phase:     "PLANNING",
		Status:    "plan_created",
		Metrics:   PlanMetrics{TotalTasks: len(steps), EstimatedEffortHours: 8},
	}

	for i, s := range steps {
		id := fmt.Sprintf("task_%d", i+1)
		deps := []string{}
		if i > 0 {
			deps = append(deps, plan.Subtasks[i-1].ID)
		}
		plan.Subtasks = append(plan.Subtasks, Subtask{
			ID: id, Name: s.name, Description: s.desc, Priority: i + 1, Dependencies: deps,
		})
		plan.Metrics.CriticalPath = append(plan.Metrics.CriticalPath, id)
	}

	return plan
}

func analyzeTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        AnalyzeReasoning,
		Description: "Reason through a decision by evaluating comma-separated options for pros, cons and risks.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"question":{"type":"string","description":"The question or problem to reason about"},"options":{"type":"string","description":"Comma-separated options to evaluate"}},"required":["question","options"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Question string `json:"question"`
				Options  string `json:"options"`
			}
			if err := toolbox.Decode(AnalyzeReasoning, input, &in); err != nil {
				return "", err
			}
			return render(AnalyzeReasoning, Analyze(in.Question, in.Options))
		},
	}
}

// Analyze evaluates each comma-separated option.
func Analyze(question, options string) Analysis {
	a := Analysis{
		DecisionQuestion: question,
		Options:          []OptionAnalysis{},
		Recommendation:   "Requires human decision-making input",
	}

	for opt := range strings.SplitSeq(options, ",") {
		a.Options = append(a.Options, OptionAnalysis{
			Option: strings.TrimSpace(opt),
			Pros:   []string{"Can be evaluated", "Structured analysis available"},
			Cons:   []string{"Requires context", "Trade-offs may be present"},
			Risks:  []string{"Unknown unknowns", "Context-dependent failures"},
		})
	}

	return a
}

func (p *Planner) observeTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        ObserveProgress,
		Description: "Record progress on a task (status: in_progress, blocked, completed, error) and get recommended next steps.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"task_id":{"type":"string","description":"Unique identifier for the task"},"status":{"type":"string","description":"Current status of the task"},"completion_percent":{"type":"integer","description":"Percentage of completion (0-100)"},"notes":{"type":"string","description":"Observations and findings"}},"required":["task_id","status","completion_percent","notes"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				TaskID            string `json:"task_id"`
				Status            string `json:"status"`
				CompletionPercent int    `json:"completion_percent"`
				Notes             string `json:"notes"`
			}
			if err := toolbox.Decode(ObserveProgress, input, &in); err != nil {
				return "", err
			}
			if in.CompletionPercent < 0 || in.CompletionPercent > 100 {
				return "", fmt.Errorf("%s: completion_percent must be between 0 and 100", ObserveProgress)
			}

			return render(ObserveProgress, Observation{
				ID:                p.NewID(),
				Timestamp:         p.stamp(),
				TaskID:            in.TaskID,
				Status:            in.Status,
				CompletionPercent: in.CompletionPercent,
				Notes:             in.Notes,
				NextSteps:         NextSteps(in.Status),
			})
		},
	}
}

// NextSteps recommends follow-ups for a task status.
func NextSteps(status string) []string {
	switch status {
	case "completed":
		return []string{"Validate results", "Document findings", "Close task"}
	case "blocked":
		return []string{"Identify blocker", "Find workaround", "Escalate if needed"}
	case "error":
		return []string{"Analyze error", "Determine root cause", "Plan recovery"}
	default:
		return []string{"Continue execution", "Monitor progress"}
	}
}

func compareTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        CompareResults,
		Description: "Compare an expected result against the actual one and report gaps with a quality score.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"expected":{"type":"string","description":"Expected or target result"},"actual":{"type":"string","description":"Actual result obtained"}},"required":["expected","actual"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Expected string `json:"expected"`
				Actual   string `json:"actual"`
			}
			if err := toolbox.Decode(CompareResults, input, &in); err != nil {
				return "", err
			}
			return render(CompareResults, Compare(in.Expected, in.Actual))
		},
	}
}

// Compare checks actual against expected ignoring case.
func Compare(expected, actual string) Comparison {
	var c Comparison
	c.Comparison.Expected = expected
	c.Comparison.Actual = actual
	c.Comparison.Match = strings.EqualFold(expected, actual)
	c.Gaps = []string{}
	c.QualityScore = 1.0
	c.Recommendations = []string{"Document the result", "Perform quality review", "Plan next iteration if needed"}

	if !c.Comparison.Match {
		c.Gaps = append(c.Gaps, "Mismatch detected")
		c.QualityScore = 0.5
	}

	return c
}
