package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ReadProjectID returns the project_id of a Firebase service-account key file.
func ReadProjectID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read service account key: %w", err)
	}

	var key struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("decode service account key: %w", err)
	}
	if key.ProjectID == "" {
		return "", errors.New("service account key has no project_id")
	}
	return key.ProjectID, nil
}
