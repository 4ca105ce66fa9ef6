package dto

import "prompt-optimiser-be/pkg/optimiser/session"

type SubmitCritiqueRequest struct {
	InputText      string `json:"inputText" validate:"max=50000"`
	EntryMode      string `json:"entryMode" validate:"omitempty,oneof=idea prompt"`
	ProblemContext string `json:"problemContext" validate:"max=50000"`
}

type AnswerQuestionRequest struct {
	Text string `json:"text" validate:"max=50000"`
}

type SwitchModelRequest struct {
	Vendor string `json:"vendor" validate:"required"`
	Model  string `json:"model"`
}

type EditInputRequest struct {
	InputText string `json:"inputText" validate:"max=50000"`
}

type UpdateEntryRequest struct {
	EntryMode      string  `json:"entryMode" validate:"omitempty,oneof=idea prompt"`
	ProblemContext *string `json:"problemContext" validate:"omitempty,max=50000"`
}

// SessionChangedMessage travels on the in-process session topic.
type SessionChangedMessage struct {
	SessionId string           `json:"session_id"`
	Snapshot  session.Snapshot `json:"snapshot"`
}
