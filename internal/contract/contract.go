// Package contract holds the versioned prompt every completion is built from.
package contract

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed contract.yaml
var embedded []byte

const documentPlaceholder = "{{DOCUMENT}}"

// Headings are the section markers the model must emit and the parser looks for.
type Headings struct {
	KeyPoints string `yaml:"key_points"`
	Actions   string `yaml:"actions"`
}

// Contract fixes the persona, the instruction template and the section markers.
type Contract struct {
	Version       string   `yaml:"version"`
	Persona       string   `yaml:"persona"`
	Instruction   string   `yaml:"instruction"`
	KeyPointCount int      `yaml:"key_point_count"`
	Headings      Headings `yaml:"headings"`
}

var (
	defaultOnce     sync.Once
	defaultContract Contract
)

// Default returns the embedded contract. The embedded file is validated by tests, so a
// failure here is a build defect.
func Default() Contract {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("embedded prompt contract: %v", err))
		}
		defaultContract = c
	})
	return defaultContract
}

// Parse decodes and validates a YAML contract.
func Parse(data []byte) (Contract, error) {
	var c Contract
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Contract{}, fmt.Errorf("decode contract: %w", err)
	}
	c.Persona = strings.TrimSpace(c.Persona)
	c.Headings.KeyPoints = strings.TrimSpace(c.Headings.KeyPoints)
	c.Headings.Actions = strings.TrimSpace(c.Headings.Actions)
	if err := c.Validate(); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// Validate checks the invariants both the prompt builder and the parser rely on.
func (c Contract) Validate() error {
	switch {
	case strings.TrimSpace(c.Version) == "":
		return errors.New("contract version is required")
	case c.Persona == "":
		return errors.New("contract persona is required")
	case !strings.Contains(c.Instruction, documentPlaceholder):
		return fmt.Errorf("contract instruction must contain %s", documentPlaceholder)
	case c.KeyPointCount <= 0:
		return errors.New("contract key_point_count must be positive")
	case c.Headings.KeyPoints == "" || c.Headings.Actions == "":
		return errors.New("contract headings are required")
	case strings.EqualFold(c.Headings.KeyPoints, c.Headings.Actions):
		return errors.New("contract headings must differ")
	}
	return nil
}

// UserMessage renders the instruction template around the document text. The text is
// embedded as given.
func (c Contract) UserMessage(text string) string {
	replacer := strings.NewReplacer(
		"{{KEY_POINTS_HEADING}}", c.Headings.KeyPoints,
		"{{ACTIONS_HEADING}}", c.Headings.Actions,
		"{{KEY_POINT_COUNT}}", strconv.Itoa(c.KeyPointCount),
	)
	// The document goes in last so that placeholder-looking text inside it is left alone.
	return strings.Replace(replacer.Replace(c.Instruction), documentPlaceholder, text, 1)
}
