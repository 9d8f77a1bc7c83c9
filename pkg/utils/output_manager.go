package utils

import (
	"fmt"
	"path"
	"strings"
)

// OutputManager builds artifact paths under a base location
type OutputManager struct {
	BasePrefix string
}

// NewOutputManager creates a new output manager
func NewOutputManager(basePrefix string) *OutputManager {
	return &OutputManager{
		BasePrefix: strings.Trim(basePrefix, "/"),
	}
}

// PartitionDir returns {base}/{entity}/year={year}/month={month}/day={day}
func (om *OutputManager) PartitionDir(entity, year, month, day string) string {
	dir := fmt.Sprintf("%s/year=%s/month=%s/day=%s", entity, year, month, day)
	if om.BasePrefix == "" {
		return dir
	}
	return om.BasePrefix + "/" + dir
}

// PartitionPath returns the full artifact path inside a partition directory
func (om *OutputManager) PartitionPath(entity, year, month, day, artifactName string) string {
	return om.PartitionDir(entity, year, month, day) + "/" + path.Base(artifactName)
}

// ArtifactName derives the artifact file name from an input identifier:
// directories are dropped and the extension is replaced with ext.
func ArtifactName(identifier, ext string) string {
	base := path.Base(strings.ReplaceAll(identifier, "\\", "/"))
	if e := path.Ext(base); e != "" {
		base = strings.TrimSuffix(base, e)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return base + ext
}

// GetFileType determines the file type based on extension
func GetFileType(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".csv":
		return "csv"
	case ".parquet":
		return "parquet"
	case ".json":
		return "json"
	default:
		return "unknown"
	}
}

// ContentType maps a file name to the MIME type used when storing it
func ContentType(fileName string) string {
	switch GetFileType(fileName) {
	case "csv":
		return "text/csv"
	case "parquet":
		return "application/vnd.apache.parquet"
	case "json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
