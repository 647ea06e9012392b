package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// GuildIDs is a list of guild snowflakes. In files the IDs may be written
// as numbers or strings, both decode to strings.
type GuildIDs []string

// UnmarshalYAML implements yaml.Unmarshaler
func (g *GuildIDs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: guild IDs must be a list", node.Line)
	}

	ids := make(GuildIDs, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: guild ID must be a scalar", item.Line)
		}
		ids = append(ids, item.Value)
	}

	*g = ids
	return nil
}
