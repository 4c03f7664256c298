package railwaydb

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/travigo/railtracker/pkg/database"
	"github.com/travigo/railtracker/pkg/railway"
)

// MongoSource selects the railway collections of the connected MongoDB database
const MongoSource = "mongodb"

// Open picks the index implementation for source: MongoSource, a YAML dataset
// file, or otherwise a SQLite railway database path
func Open(source string) (railway.Index, error) {
	switch {
	case source == MongoSource:
		if err := database.Connect(); err != nil {
			return nil, fmt.Errorf("connect railway database: %w", err)
		}
		return NewMongoIndex(), nil
	case isYAML(source):
		dataset, err := LoadDataset(source)
		if err != nil {
			return nil, err
		}
		return dataset.Index()
	default:
		return OpenSQLiteIndex(source)
	}
}

func isYAML(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	return extension == ".yaml" || extension == ".yml"
}
