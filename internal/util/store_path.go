package util

import (
	"path/filepath"

	"github.com/sjc5/kit/pkg/executil"
)

// GetDefaultStorePath places the store file next to the running executable,
// falling back to the working directory.
func GetDefaultStorePath(fileName string) string {
	execDir, err := executil.GetExecutableDir()
	if err != nil {
		return fileName
	}
	return filepath.Join(execDir, fileName)
}
