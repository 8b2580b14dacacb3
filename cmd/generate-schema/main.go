// Command generate-schema writes the JSON schema of the pldmfs configuration
// file, for editor completion and validation.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/marmos91/pldmfs/pkg/config"
)

func main() {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		// Keys in the file are the mapstructure names viper decodes.
		FieldNameTag: "mapstructure",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "pldmfs Configuration"
	schema.Description = "Configuration schema for the pldmfsd PLDM file I/O responder"
	schema.Version = "1.0.0"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling schema: %v\n", err)
		os.Exit(1)
	}

	outputFile := "config.schema.json"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("JSON schema written to %s\n", outputFile)
}
