// Package prompt composes the instruction payloads sent to the model for each optimiser mode.
package prompt

import (
	"fmt"
	"strings"

	"prompt-optimiser-be/pkg/optimiser"
	"prompt-optimiser-be/pkg/vendor"
)

type Input struct {
	Mode              optimiser.Mode
	Vendor            vendor.Vendor
	Model             string
	InputText         string
	EntryMode         optimiser.EntryMode
	ProblemContext    string
	AdditionalContext string
}

// Build returns the system instruction and user message for in.Mode.
func Build(in Input) (system, user string) {
	switch in.Mode {
	case optimiser.ModeCritique:
		return critiqueSystem(in), critiqueUser(in)
	case optimiser.ModeOptimise:
		return generationSystem(in, true), generationUser(in)
	default:
		return generationSystem(in, false), generationUser(in)
	}
}

func writeTarget(sb *strings.Builder, in Input) {
	sb.WriteString("<target_model>\n")
	fmt.Fprintf(sb, "Vendor: %s\nModel: %s\n", in.Vendor.Name, in.Model)
	sb.WriteString("</target_model>\n\n")

	if in.Vendor.Guidance != "" {
		sb.WriteString("<vendor_guidance>\n")
		sb.WriteString(in.Vendor.Guidance)
		sb.WriteString("\n</vendor_guidance>\n\n")
	}
}

func critiqueSystem(in Input) string {
	var sb strings.Builder

	sb.WriteString("<task>\n")
	sb.WriteString("You are an expert prompt engineer. Review the user's material before any prompt is written.\n")
	sb.WriteString("Identify what is ambiguous, missing or risky, then ask the clarifying questions whose answers ")
	sb.WriteString("would most improve the final prompt.\n")
	sb.WriteString("</task>\n\n")

	writeTarget(&sb, in)

	sb.WriteString("<rules>\n")
	sb.WriteString("- Ask between 3 and 7 questions.\n")
	sb.WriteString("- Each question needs a short unique id (q1, q2, ...), a one-sentence reason and a category ")
	sb.WriteString("(audience, goal, format, constraints, context, tone or examples).\n")
	sb.WriteString("- Do not write the prompt yet.\n")
	sb.WriteString("</rules>\n\n")

	sb.WriteString("<output_format>\n")
	sb.WriteString("Respond with a single JSON object and nothing else:\n")
	sb.WriteString(`{"overallAssessment": string, "concerns": [string], "questions": [{"id": string, "question": string, "why": string, "category": string}]}`)
	sb.WriteString("\n</output_format>")

	return sb.String()
}

func critiqueUser(in Input) string {
	var sb strings.Builder

	if in.EntryMode == optimiser.EntryModePrompt {
		sb.WriteString("Here is an existing prompt I want to improve:\n\n<existing_prompt>\n")
		sb.WriteString(in.InputText)
		sb.WriteString("\n</existing_prompt>\n")
		if pc := strings.TrimSpace(in.ProblemContext); pc != "" {
			sb.WriteString("\nWhat isn't working with it:\n<problem>\n")
			sb.WriteString(pc)
			sb.WriteString("\n</problem>\n")
		}
	} else {
		sb.WriteString("Here is my idea for a prompt:\n\n<idea>\n")
		sb.WriteString(in.InputText)
		sb.WriteString("\n</idea>\n")
	}

	sb.WriteString("\nCritique it and ask your clarifying questions.")
	return sb.String()
}

func generationSystem(in Input, optimise bool) string {
	var sb strings.Builder

	sb.WriteString("<task>\n")
	if optimise {
		sb.WriteString("You are an expert prompt engineer. Rewrite the user's existing prompt so it performs better ")
		sb.WriteString("on the target model, keeping its intent intact.\n")
	} else {
		sb.WriteString("You are an expert prompt engineer. Write a complete, ready-to-use prompt for the target model ")
		sb.WriteString("from the user's material and any clarifications they gave.\n")
	}
	sb.WriteString("</task>\n\n")

	writeTarget(&sb, in)

	sb.WriteString("<rules>\n")
	sb.WriteString("- Follow the vendor guidance for structure and formatting.\n")
	sb.WriteString("- Where information is missing, make a reasonable assumption and list it.\n")
	sb.WriteString("- Offer up to five concrete suggestions that would further improve the prompt.\n")
	sb.WriteString("</rules>\n\n")

	sb.WriteString("<output_format>\n")
	sb.WriteString("Respond with a single JSON object and nothing else:\n")
	sb.WriteString(`{"generatedPrompt": string, "assumptions": [string], "structure": [string], "suggestions": [string], "summary": string}`)
	sb.WriteString("\n</output_format>")

	return sb.String()
}

func generationUser(in Input) string {
	var sb strings.Builder

	sb.WriteString("<input>\n")
	sb.WriteString(in.InputText)
	sb.WriteString("\n</input>\n")

	if pc := strings.TrimSpace(in.ProblemContext); pc != "" {
		sb.WriteString("\n<problem>\n")
		sb.WriteString(pc)
		sb.WriteString("\n</problem>\n")
	}

	if ac := strings.TrimSpace(in.AdditionalContext); ac != "" {
		sb.WriteString("\n<additional_context>\n")
		sb.WriteString(ac)
		sb.WriteString("\n</additional_context>\n")
	}

	sb.WriteString("\nProduce the JSON response now.")
	return sb.String()
}
