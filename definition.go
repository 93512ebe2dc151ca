package guidedconv

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseDefinition decodes a Definition from a YAML document, e.g.:
//
//	schema:
//	  - name: student_poem
//	    type: string
//	    description: The acrostic poem written by the student
//	rules:
//	  - DO NOT write the poem for the student.
//	flow: |
//	  Explain the assignment, then coach the student through a draft.
//	context: You are tutoring a fourth grader.
//	constraint:
//	  quantity: 10
//	  unit: turns
//	  mode: exact
//
// The decoded definition is validated before it is returned.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadDefinitionFile reads and parses a YAML definition from disk.
func LoadDefinitionFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read definition file: %w", err)
	}
	return ParseDefinition(data)
}
