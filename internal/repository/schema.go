package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jzielinski/invoicescan/internal/common"
)

// Stored JSON payloads are validated on write so a bad serializer (or a hand
// edit of a sqlite file) never poisons the tables silently.

const ruleSchema = `{
	"type": "object",
	"required": ["phrase", "weight", "match_type"],
	"properties": {
		"phrase": {"type": "string", "minLength": 1},
		"weight": {"type": "integer"},
		"language": {"type": "string"},
		"match_type": {"enum": ["CONTAINS", "EQUALS", "REGEX"]}
	}
}`

var globalRulesetSchema = fmt.Sprintf(`{
	"type": "object",
	"required": ["version"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"pay_due": {"type": "array", "items": %[1]s},
		"due_date": {"type": "array", "items": %[1]s},
		"total": {"type": "array", "items": %[1]s},
		"negative": {"type": "array", "items": %[1]s},
		"currency_hints": {"type": "array", "items": {"type": "string"}}
	}
}`, ruleSchema)

var vendorOverridesSchema = fmt.Sprintf(`{
	"type": "object",
	"required": ["vendor_key", "revision"],
	"properties": {
		"vendor_key": {"type": "string", "minLength": 1},
		"revision": {"type": "integer", "minimum": 0},
		"pay_due": {"type": "array", "items": %[1]s},
		"due_date": {"type": "array", "items": %[1]s},
		"total": {"type": "array", "items": %[1]s},
		"negative": {"type": "array", "items": %[1]s},
		"disabled_global_phrases": {"type": "array", "items": {"type": "string"}},
		"correction_count": {"type": "integer", "minimum": 0},
		"preferred_region": {"type": "string"},
		"anchor_phrases": {"type": "array", "items": {"type": "string"}}
	}
}`, ruleSchema)

var (
	compiledGlobalSchema    = mustCompileSchema("global_ruleset.json", globalRulesetSchema)
	compiledOverridesSchema = mustCompileSchema("vendor_overrides.json", vendorOverridesSchema)
)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

func validatePayload(schema *jsonschema.Schema, payload []byte) error {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return common.NewAppError("PAYLOAD_DECODE", "payload is not valid JSON", err)
	}
	if err := schema.Validate(v); err != nil {
		return common.NewAppError("PAYLOAD_SCHEMA", "payload does not match schema", err)
	}
	return nil
}
