package fetch

import (
	"context"
	"os"
)

// MockExecutor is a mock implementation of Executor for testing.
// It creates dest and writes Files into it instead of cloning.
type MockExecutor struct {
	Files     map[string]string
	MockError error
	Calls     []string
}

func (m *MockExecutor) Clone(ctx context.Context, url, dest string) ([]byte, error) {
	m.Calls = append(m.Calls, url)
	if m.MockError != nil {
		return nil, m.MockError
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}
	for name, content := range m.Files {
		if err := writeFile(dest, name, content); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
