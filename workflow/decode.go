package workflow

import (
	"encoding/json"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/waverun/waverun/types"
)

// rawNode mirrors Node with the config left undecoded so the variant
// can be picked by node type.
type rawNode struct {
	ID     string    `yaml:"id" json:"id"`
	Type   NodeType  `yaml:"type" json:"type"`
	Config yaml.Node `yaml:"config,omitempty" json:"config,omitempty"`
}

type rawDefinition struct {
	ID    string    `yaml:"id" json:"id"`
	Name  string    `yaml:"name" json:"name"`
	Nodes []rawNode `yaml:"nodes" json:"nodes"`
	Edges []Edge    `yaml:"edges" json:"edges"`
}

// UnmarshalDefinition decodes a workflow definition from YAML (or JSON,
// which YAML is a superset of), resolving each node's config into the
// typed variant its node type expects. Unknown node types must carry no
// config; callers registering custom types build definitions in code.
func UnmarshalDefinition(data []byte) (*Definition, error) {
	var raw rawDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, types.NewError(types.ErrGraphConstruction,
			fmt.Sprintf("parsing definition: %v", err)).WithCause(err)
	}

	def := &Definition{
		ID:    raw.ID,
		Name:  raw.Name,
		Nodes: make([]Node, 0, len(raw.Nodes)),
		Edges: raw.Edges,
	}

	for _, rn := range raw.Nodes {
		node := Node{ID: rn.ID, Type: rn.Type}
		if !rn.Config.IsZero() {
			cfg, err := decodeNodeConfig(rn.Type, &rn.Config)
			if err != nil {
				return nil, types.NewError(types.ErrInvalidNodeConfig,
					fmt.Sprintf("node %q: %v", rn.ID, err)).WithNodeID(rn.ID).WithCause(err)
			}
			node.Config = cfg
		}
		def.Nodes = append(def.Nodes, node)
	}
	return def, nil
}

// decodeNodeConfig builds a fresh config variant for the node type and
// decodes the raw mapping into it. The variants carry json tags, so the
// mapping goes through a JSON round-trip rather than yaml struct
// decoding.
func decodeNodeConfig(t NodeType, raw *yaml.Node) (NodeConfig, error) {
	proto, known := expectedConfigs[t]
	if !known {
		return nil, fmt.Errorf("node type %q does not accept an inline config", t)
	}

	var fields map[string]any
	if err := raw.Decode(&fields); err != nil {
		return nil, err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	cfg := reflect.New(reflect.TypeOf(proto).Elem()).Interface().(NodeConfig)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
