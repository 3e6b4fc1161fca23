/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presexch

const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "format": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "alg": {"type": "array", "minItems": 1, "items": {"type": "string"}},
          "proof_type": {"type": "array", "minItems": 1, "items": {"type": "string"}}
        }
      }
    },
    "field": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "path": {"type": "array", "minItems": 1, "items": {"type": "string"}},
        "purpose": {"type": "string"},
        "name": {"type": "string"},
        "filter": {"type": "object"},
        "optional": {"type": "boolean"}
      },
      "required": ["path"]
    },
    "input_descriptor": {
      "type": "object",
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "name": {"type": "string"},
        "purpose": {"type": "string"},
        "group": {"type": "array", "items": {"type": "string"}},
        "format": {"$ref": "#/definitions/format"},
        "schema": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {"uri": {"type": "string"}, "required": {"type": "boolean"}},
            "required": ["uri"]
          }
        },
        "constraints": {
          "type": "object",
          "properties": {
            "limit_disclosure": {"type": "string", "enum": ["required", "preferred"]},
            "fields": {"type": "array", "items": {"$ref": "#/definitions/field"}}
          }
        }
      },
      "required": ["id"]
    },
    "submission_requirement": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "purpose": {"type": "string"},
        "rule": {"type": "string", "enum": ["all", "pick"]},
        "count": {"type": "integer", "minimum": 1},
        "min": {"type": "integer", "minimum": 0},
        "max": {"type": "integer", "minimum": 0},
        "from": {"type": "string"},
        "from_nested": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/submission_requirement"}}
      },
      "required": ["rule"]
    }
  },
  "type": "object",
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "purpose": {"type": "string"},
    "format": {"$ref": "#/definitions/format"},
    "submission_requirements": {"type": "array", "items": {"$ref": "#/definitions/submission_requirement"}},
    "input_descriptors": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/input_descriptor"}}
  },
  "required": ["id", "input_descriptors"]
}`
