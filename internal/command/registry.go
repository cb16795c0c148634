package command

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/NomadCrew/oweather-bot/internal/settings"
	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var commandsYAML []byte

// Spec is the metadata of one chat command.
type Spec struct {
	Name        string               `yaml:"name"`
	Pattern     string               `yaml:"pattern"`
	AccessLevel settings.AccessLevel `yaml:"access_level"`
	Description string               `yaml:"description"`
	Help        string               `yaml:"help"`
}

type specFile struct {
	Commands []Spec `yaml:"commands"`
}

// LoadSpecs parses command metadata. Every command needs a name and a
// pattern with one capture group for its argument.
func LoadSpecs(data []byte) ([]Spec, error) {
	var file specFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing command definitions: %w", err)
	}

	seen := make(map[string]bool, len(file.Commands))
	for i, spec := range file.Commands {
		if spec.Name == "" || spec.Pattern == "" {
			return nil, fmt.Errorf("command #%d: name and pattern are required", i+1)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("command %s defined twice", spec.Name)
		}
		seen[spec.Name] = true

		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", spec.Name, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("command %s: pattern must have exactly one capture group", spec.Name)
		}
		if spec.AccessLevel == "" {
			file.Commands[i].AccessLevel = settings.AccessAll
		} else if _, err := settings.ParseAccessLevel(string(spec.AccessLevel)); err != nil {
			return nil, fmt.Errorf("command %s: %w", spec.Name, err)
		}
		file.Commands[i].Help = strings.TrimRight(spec.Help, "\n")
	}
	return file.Commands, nil
}

// DefaultSpecs returns the embedded command definitions.
func DefaultSpecs() ([]Spec, error) {
	return LoadSpecs(commandsYAML)
}
