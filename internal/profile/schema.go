package profile

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gopkg.in/yaml.v3"
)

// presetSchema guards the profile file shape before the strict decode, so a
// hand-edited file fails with a field-level message instead of a type panic.
const presetSchema = `{
  "type": "object",
  "required": ["profiles"],
  "properties": {
    "profiles": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "description": {"type": "string"},
          "strategy": {
            "type": "object",
            "properties": {
              "fixed_notional": {"type": "number", "minimum": 0},
              "risk_fraction": {"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1},
              "tp_r_multiple": {"type": "number", "exclusiveMinimum": 0},
              "trailing_atr_mult": {"type": "number", "exclusiveMinimum": 0},
              "adx_threshold": {"type": "number", "minimum": 0},
              "contract_multiplier": {"type": "number", "exclusiveMinimum": 0},
              "min_bars": {"type": "integer", "minimum": 0},
              "max_trades_per_day": {"type": "integer", "minimum": 1},
              "partial_exit_ratio": {"type": "number", "minimum": 0, "exclusiveMaximum": 1}
            },
            "additionalProperties": false
          },
          "indicator": {
            "type": "object",
            "additionalProperties": {"type": "integer", "minimum": 2}
          }
        },
        "additionalProperties": false
      }
    }
  }
}`

var compiledPresetSchema = jsonschema.MustCompileString("profiles.json", presetSchema)

func validateAgainstSchema(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse profiles: %w", err)
	}
	jsonDoc, err := jsonRoundtrip(doc)
	if err != nil {
		return fmt.Errorf("normalize profiles: %w", err)
	}
	if err := compiledPresetSchema.Validate(jsonDoc); err != nil {
		msg := err.Error()
		if idx := strings.IndexByte(msg, '\n'); idx > 0 {
			msg = msg[:idx]
		}
		return fmt.Errorf("profiles schema: %s", msg)
	}
	return nil
}
