// Package optimiser holds the records shared by the prompt-optimisation workflow.
package optimiser

// Mode selects the instruction payload the orchestrator sends upstream.
type Mode string

const (
	ModeCritique Mode = "critique"
	ModeOptimise Mode = "optimise"
	ModeGenerate Mode = "generate"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeCritique, ModeOptimise, ModeGenerate:
		return true
	}
	return false
}

// EntryMode says whether the user started from a rough idea or an existing prompt.
// The zero value means unset.
type EntryMode string

const (
	EntryModeUnset  EntryMode = ""
	EntryModeIdea   EntryMode = "idea"
	EntryModePrompt EntryMode = "prompt"
)

func (e EntryMode) Valid() bool {
	return e == EntryModeIdea || e == EntryModePrompt
}

type Question struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Why      string `json:"why,omitempty"`
	Category string `json:"category,omitempty"`
}

// Critique is the phase-one output: an assessment plus clarifying questions.
type Critique struct {
	OverallAssessment string     `json:"overallAssessment"`
	Concerns          []string   `json:"concerns"`
	Questions         []Question `json:"questions"`
}

// HasQuestion reports whether id belongs to one of the critique's questions.
func (c *Critique) HasQuestion(id string) bool {
	if c == nil {
		return false
	}
	for _, q := range c.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Result is the generated prompt and its commentary.
type Result struct {
	GeneratedPrompt string   `json:"generatedPrompt"`
	Assumptions     []string `json:"assumptions"`
	Structure       []string `json:"structure"`
	Suggestions     []string `json:"suggestions"`
	Summary         string   `json:"summary"`
}
