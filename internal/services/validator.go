package services

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// postJobSchema constrains the POST /jobs/post payload before it reaches the
// state machine. Price is a whole, non-negative number of credits.
const postJobSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["title", "description", "category", "price"],
	"properties": {
		"title":          {"type": "string", "minLength": 1, "maxLength": 200},
		"description":    {"type": "string", "minLength": 1},
		"category":       {"type": "string", "minLength": 1},
		"price":          {"type": "integer", "minimum": 0},
		"logo":           {"type": ["string", "null"]},
		"scheduled_date": {"type": ["string", "null"]},
		"scheduled_time": {"type": ["string", "null"]},
		"location":       {"type": ["string", "null"]},
		"notes":          {"type": ["string", "null"]}
	},
	"additionalProperties": false
}`

// updatePostingSchema is the partial-update variant: same fields, nothing
// required.
const updatePostingSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"title":          {"type": "string", "minLength": 1, "maxLength": 200},
		"description":    {"type": "string", "minLength": 1},
		"category":       {"type": "string", "minLength": 1},
		"price":          {"type": "integer", "minimum": 0},
		"logo":           {"type": ["string", "null"]},
		"scheduled_date": {"type": ["string", "null"]},
		"scheduled_time": {"type": ["string", "null"]},
		"location":       {"type": ["string", "null"]},
		"notes":          {"type": ["string", "null"]}
	},
	"additionalProperties": false
}`

type Validator struct {
	postJob       *jsonschema.Schema
	updatePosting *jsonschema.Schema
}

// NewValidator compiles the request schemas. Compile failures are programmer
// errors, caught at startup.
func NewValidator() (*Validator, error) {
	post, err := jsonschema.CompileString("post_job.json", postJobSchema)
	if err != nil {
		return nil, fmt.Errorf("compile post_job schema: %w", err)
	}
	update, err := jsonschema.CompileString("update_posting.json", updatePostingSchema)
	if err != nil {
		return nil, fmt.Errorf("compile update_posting schema: %w", err)
	}
	return &Validator{postJob: post, updatePosting: update}, nil
}

func (v *Validator) ValidatePostJob(raw json.RawMessage) error {
	return validateRaw(v.postJob, raw)
}

func (v *Validator) ValidateUpdatePosting(raw json.RawMessage) error {
	return validateRaw(v.updatePosting, raw)
}

func validateRaw(schema *jsonschema.Schema, raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return schema.Validate(doc)
}
