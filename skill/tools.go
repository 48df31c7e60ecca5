package skill

import (
	"github.com/invopop/jsonschema"
)

// ToolDescriptor is one entry in the list GetTools produces: an
// LLM-tool-use-shaped {name, description, parameters} triple.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// GetTools synthesizes a JSON-schema tool list from every registered
// descriptor's declared ParamSpecs (spec §9 design note: declarative
// parameter tables in place of runtime reflection over skill classes).
func (l *Library) GetTools() []ToolDescriptor {
	l.mu.Lock()
	defer l.mu.Unlock()

	tools := make([]ToolDescriptor, 0, len(l.descriptors))
	for _, d := range l.descriptors {
		tools = append(tools, ToolDescriptor{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  paramsToSchema(d.Params),
		})
	}
	return tools
}

func paramsToSchema(params []ParamSpec) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}
	for _, p := range params {
		schema.Properties.Set(p.Name, &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
		})
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}
