package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func writeJSONFile(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cmd/hdp: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("cmd/hdp: write %s: %w", path, err)
	}
	return nil
}
