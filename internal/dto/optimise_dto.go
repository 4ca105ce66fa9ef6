package dto

// OptimiseRequest is the stateless inbound operation. Field rules are enforced
// by the orchestrator so every violation carries its specific reason.
type OptimiseRequest struct {
	Mode              string `json:"mode"`
	Vendor            string `json:"vendor"`
	Model             string `json:"model"`
	InputText         string `json:"inputText"`
	AdditionalContext string `json:"additionalContext"`
	EntryMode         string `json:"entryMode"`
	ProblemContext    string `json:"problemContext"`
}

type VendorResponse struct {
	Id     string   `json:"id"`
	Name   string   `json:"name"`
	Models []string `json:"models"`
}
