package savegame

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"phaseout.no/internal/sim/game"
)

const schemaBase = "https://phaseout.no/schemas/savegame/"

// keySchemas holds one schema per persisted key. A value failing its schema
// is replaced by the fresh default for that key alone.
var keySchemas = map[string]string{
	"budget":                 fmt.Sprintf(`{"type":"number","minimum":0,"maximum":%d}`, game.MaxBudget),
	"score":                  fmt.Sprintf(`{"type":"integer","minimum":0,"maximum":%d}`, game.MaxScore),
	"year":                   fmt.Sprintf(`{"type":"integer","minimum":%d,"maximum":%d}`, game.MinYear, game.MaxYear),
	"globalTemperature":      fmt.Sprintf(`{"type":"number","minimum":%g,"maximum":%g}`, game.MinTemperature, game.MaxTemperature),
	"norwayTechRank":         `{"type":"number","minimum":0,"maximum":100}`,
	"foreignDependency":      `{"type":"number","minimum":0,"maximum":100}`,
	"climateDamage":          fmt.Sprintf(`{"type":"number","minimum":0,"maximum":%d}`, game.MaxClimateDamage),
	"sustainabilityScore":    `{"type":"number","minimum":0,"maximum":100}`,
	"saturationLevel":        `{"type":"number","minimum":0,"maximum":100}`,
	"tutorialStep":           fmt.Sprintf(`{"type":"integer","minimum":0,"maximum":%d}`, game.MaxTutorialStep),
	"badChoiceCount":         fmt.Sprintf(`{"type":"integer","minimum":0,"maximum":%d}`, game.MaxCounter),
	"goodChoiceStreak":       fmt.Sprintf(`{"type":"integer","minimum":0,"maximum":%d}`, game.MaxCounter),
	"yearlyPhaseOutCapacity": fmt.Sprintf(`{"type":"integer","minimum":0,"maximum":%d}`, game.MaxCapacity),
	"dataLayerUnlocked":      `{"type":"boolean"}`,
	"multiPhaseOutMode":      `{"type":"boolean"}`,
	"gamePhase":              `{"enum":["learning","action","crisis","victory","defeat","partial_success"]}`,
	"currentView":            `{"enum":["map","dashboard","investments","achievements","data"]}`,
	"achievements": `{"type":"array","maxItems":100,
		"items":{"type":"string","minLength":1,"maxLength":100}}`,
	"shownFacts": fmt.Sprintf(`{"type":"array","maxItems":%d,
		"items":{"type":"string","maxLength":%d}}`, game.MaxShownFacts, game.MaxFactLength),
	"shutdowns": `{"type":"object","maxProperties":1000,
		"propertyNames":{"maxLength":50},
		"additionalProperties":{"type":"integer","minimum":2020,"maximum":2060}}`,
	"investments": fmt.Sprintf(`{"type":"object",
		"propertyNames":{"maxLength":50},
		"additionalProperties":{"type":"number","minimum":0,"maximum":%d}}`, game.MaxInvestment),
	"playerChoices": fmt.Sprintf(`{"type":"array","maxItems":%d,
		"items":{"type":"object","required":["year","kind","text"],
			"properties":{
				"year":{"type":"integer","minimum":2020,"maximum":2060},
				"kind":{"type":"string","maxLength":50},
				"target":{"type":"string","maxLength":200},
				"amount":{"type":"number"},
				"text":{"type":"string","maxLength":%d}}}}`, game.MaxChoiceLog, game.MaxChoiceText),
}

// recordSchema validates one gameFields or selectedFields entry.
const recordSchema = `{"type":"object","required":["name","status"],
	"properties":{
		"name":{"type":"string","minLength":1,"maxLength":50},
		"status":{"enum":["active","closed","transitioning"]},
		"phaseOutCost":{"type":"number"},
		"production":{"type":"number"}}}`

var (
	compiledKeys   = map[string]*jsonschema.Schema{}
	compiledRecord *jsonschema.Schema
)

func init() {
	for k, s := range keySchemas {
		compiledKeys[k] = jsonschema.MustCompileString(schemaBase+k+".json", s)
	}
	compiledRecord = jsonschema.MustCompileString(schemaBase+"record.json", recordSchema)
}
