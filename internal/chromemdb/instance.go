package chromemdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"study-rag/internal/helper"
)

const instanceFile = ".instance_id"

// LoadInstanceID returns the id stored under dir, creating it on first use.
// Indexes record this id and are only loaded by the same instance.
func LoadInstanceID(dir string) (string, error) {
	path := filepath.Join(dir, instanceFile)

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if _, perr := uuid.Parse(id); perr != nil {
			return "", fmt.Errorf("corrupt instance id in %s: %v", path, perr)
		}
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read instance id: %v", err)
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	if err := helper.CreateFolder(dir); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write instance id: %v", err)
	}
	return id, nil
}
