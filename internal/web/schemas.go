package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// maxBodyBytes caps JSON request bodies; uploads use multipart instead.
const maxBodyBytes = 1 << 20

const conditionSchema = `{
	"type": "object",
	"required": ["column", "value"],
	"additionalProperties": false,
	"properties": {
		"column": {"type": "string", "minLength": 1},
		"op": {"type": "string"},
		"value": {"type": "string"}
	}
}`

var schemaSources = map[string]string{
	"filter": `{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"where": {"type": "array", "items": ` + conditionSchema + `},
			"columns": {"type": "array", "items": {"type": "string", "minLength": 1}, "uniqueItems": true},
			"sort": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["column"],
					"additionalProperties": false,
					"properties": {
						"column": {"type": "string", "minLength": 1},
						"descending": {"type": "boolean"}
					}
				}
			},
			"save_as": {"type": "string"}
		}
	}`,
	"aggregate": `{
		"type": "object",
		"required": ["group_by", "values", "funcs"],
		"additionalProperties": false,
		"properties": {
			"group_by": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
			"values": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
			"funcs": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
			"save_as": {"type": "string"}
		}
	}`,
	"join": `{
		"type": "object",
		"required": ["left", "right", "left_on", "right_on"],
		"additionalProperties": false,
		"properties": {
			"left": {"type": "string", "minLength": 1},
			"right": {"type": "string", "minLength": 1},
			"how": {"type": "string"},
			"left_on": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
			"right_on": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
			"save": {"type": "boolean"},
			"save_as": {"type": "string"}
		}
	}`,
	"save": `{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"name": {"type": "string"}
		}
	}`,
	"import": `{
		"type": "object",
		"required": ["table"],
		"additionalProperties": false,
		"properties": {
			"schema": {"type": "string"},
			"table": {"type": "string", "minLength": 1},
			"name": {"type": "string"},
			"replace": {"type": "boolean"}
		}
	}`,
}

// schemas holds the compiled request schemas by name.
type schemas struct {
	byName map[string]*gojsonschema.Schema
}

func mustCompileSchemas() *schemas {
	s := &schemas{byName: make(map[string]*gojsonschema.Schema, len(schemaSources))}
	for name, src := range schemaSources {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			panic(fmt.Sprintf("web: compile %s schema: %v", name, err))
		}
		s.byName[name] = compiled
	}
	return s
}

// requestError is a body that failed to parse or validate.
type requestError struct {
	problems []string
}

func (e *requestError) Error() string {
	return "invalid request: " + strings.Join(e.problems, "; ")
}

// decode validates the JSON body against the named schema, then decodes it
// into v.
func (s *schemas) decode(r *http.Request, name string, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &requestError{problems: []string{"unreadable body"}}
	}
	if len(body) > maxBodyBytes {
		return &requestError{problems: []string{"body too large"}}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	result, err := s.byName[name].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &requestError{problems: []string{"malformed JSON"}}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return &requestError{problems: problems}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &requestError{problems: []string{err.Error()}}
	}
	return nil
}
