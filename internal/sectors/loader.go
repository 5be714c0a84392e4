package sectors

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "brokerflow/internal/errors"
)

// LoadFile loads a sector mapping from a reference file, dispatching
// on extension: .csv or .xlsx.
func LoadFile(path string) (*Mapping, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open sector mapping %s", path), err)
		}
		defer f.Close()
		return LoadCSV(f)
	case ".xlsx":
		return LoadExcel(path)
	}
	return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported sector mapping format %q", filepath.Ext(path)), nil)
}
