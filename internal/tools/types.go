// Package tools defines the contract between the agent runtime and the
// capabilities it can call on the model's behalf.
package tools

import "context"

// Definition describes a tool to the model in function-calling form.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Parameters is a JSON schema object describing the arguments.
	Parameters any `json:"parameters"`
}

// Tool is a callable capability.
type Tool interface {
	Definition() Definition
	// Execute runs the tool with the raw JSON arguments sent by the model
	// and returns text for the model to read.
	Execute(ctx context.Context, argsJSON string) (string, error)
}
