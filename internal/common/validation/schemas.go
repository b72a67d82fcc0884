package validation

// Identifier sets and scores are only type-checked here; range rules such as the
// weight sum live in the matching package so they keep their own error codes.

const requirementsSchemaJSON = `{
  "type": "object",
  "required": ["id", "weights"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "organizationId": {"type": "string"},
    "weights": {
      "type": "object",
      "required": ["mission", "expertise", "tools", "logistics", "recency"],
      "properties": {
        "mission": {"type": "integer"},
        "expertise": {"type": "integer"},
        "tools": {"type": "integer"},
        "logistics": {"type": "integer"},
        "recency": {"type": "integer"}
      }
    },
    "requiredExpertise": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["skillId"],
        "properties": {
          "skillId": {"type": "string", "minLength": 1},
          "minLevel": {"type": "integer"},
          "mustHave": {"type": "boolean"}
        }
      }
    },
    "requiredTools": {"type": ["array", "null"], "items": {"type": "string"}},
    "requiredLanguages": {"type": ["array", "null"], "items": {"type": "string"}},
    "locationMode": {"enum": ["", "onsite", "hybrid", "remote"]},
    "city": {"type": "string"},
    "country": {"type": "string"},
    "causes": {"type": ["array", "null"], "items": {"type": "string"}},
    "values": {"type": ["array", "null"], "items": {"type": "string"}},
    "startWindow": {
      "type": "object",
      "properties": {
        "earliest": {"type": "string", "format": "date-time"},
        "latest": {"type": "string", "format": "date-time"}
      }
    },
    "budgetMasked": {"type": "boolean"},
    "matchTtlDays": {"type": "integer", "minimum": 0},
    "maxMatchesToShow": {"type": "integer", "minimum": 0}
  }
}`

const profileSchemaJSON = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "expertise": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["skillId", "proficiencyLevel"],
        "properties": {
          "skillId": {"type": "string", "minLength": 1},
          "proficiencyLevel": {"type": "integer"},
          "verified": {"type": "boolean"},
          "proofCount": {"type": "integer", "minimum": 0},
          "lastUsedDate": {"type": ["string", "null"], "format": "date-time"}
        }
      }
    },
    "tools": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["toolId"],
        "properties": {
          "toolId": {"type": "string", "minLength": 1},
          "lastUsedDate": {"type": ["string", "null"], "format": "date-time"}
        }
      }
    },
    "causes": {"type": ["array", "null"], "items": {"type": "string"}},
    "values": {"type": ["array", "null"], "items": {"type": "string"}},
    "languages": {"type": ["array", "null"], "items": {"type": "string"}},
    "region": {"type": "string"},
    "timezone": {"type": "string"},
    "availabilityStatus": {"type": "string"},
    "availableStartDate": {"type": ["string", "null"], "format": "date-time"},
    "workModes": {"type": ["array", "null"], "items": {"enum": ["onsite", "hybrid", "remote"]}},
    "profileReadyForMatch": {"type": "boolean"},
    "experimentalColdStartOptIn": {"type": "boolean"}
  }
}`

var (
	Requirements = MustCompile("assignment-requirements", requirementsSchemaJSON)
	Profile      = MustCompile("candidate-profile", profileSchemaJSON)
)
