package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waverun/waverun/types"
)

func TestUnmarshalDefinition_YAML(t *testing.T) {
	t.Parallel()

	data := []byte(`
id: wf-support
name: ticket triage
nodes:
  - id: start
    type: manual_trigger
  - id: classify
    type: llm_completion
    config:
      prompt_template: "Classify: {{previous}}"
      model: gpt-4o-mini
      temperature: 0.2
  - id: route
    type: switch
    config:
      path: content
      cases:
        billing: invoices
        bug: engineering
      default: triage
edges:
  - source: start
    target: classify
  - source: classify
    target: route
`)

	def, err := UnmarshalDefinition(data)
	require.NoError(t, err)

	assert.Equal(t, "wf-support", def.ID)
	assert.Equal(t, "ticket triage", def.Name)
	require.Len(t, def.Nodes, 3)
	require.Len(t, def.Edges, 2)

	assert.Nil(t, def.Nodes[0].Config)

	completion, ok := def.Nodes[1].Config.(*CompletionConfig)
	require.True(t, ok)
	assert.Equal(t, "Classify: {{previous}}", completion.PromptTemplate)
	assert.Equal(t, "gpt-4o-mini", completion.Model)
	assert.InDelta(t, 0.2, completion.Temperature, 1e-9)

	sw, ok := def.Nodes[2].Config.(*SwitchConfig)
	require.True(t, ok)
	assert.Equal(t, "content", sw.Path)
	assert.Equal(t, "invoices", sw.Cases["billing"])
	assert.Equal(t, "triage", sw.Default)

	// The decoded definition builds.
	_, err = BuildGraph(def)
	require.NoError(t, err)
}

func TestUnmarshalDefinition_JSON(t *testing.T) {
	t.Parallel()

	data := []byte(`{
	  "id": "wf-json",
	  "nodes": [
	    {"id": "q", "type": "database_query", "config": {"sql": "SELECT 1", "params": [7]}}
	  ]
	}`)

	def, err := UnmarshalDefinition(data)
	require.NoError(t, err)

	q, ok := def.Nodes[0].Config.(*DatabaseQueryConfig)
	require.True(t, ok)
	assert.Equal(t, "SELECT 1", q.SQL)
	assert.Equal(t, []any{float64(7)}, q.Params)
}

func TestUnmarshalDefinition_UnknownTypeWithConfig(t *testing.T) {
	t.Parallel()

	data := []byte(`
id: wf-custom
nodes:
  - id: x
    type: my_custom_type
    config:
      anything: true
`)

	_, err := UnmarshalDefinition(data)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidNodeConfig, types.GetErrorCode(err))
}

func TestUnmarshalDefinition_Malformed(t *testing.T) {
	t.Parallel()

	_, err := UnmarshalDefinition([]byte("nodes: ["))
	require.Error(t, err)
	assert.Equal(t, types.ErrGraphConstruction, types.GetErrorCode(err))
}
