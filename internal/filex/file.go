package filex

import (
	"encoding/json"
	"fmt"
	"os"
)

// maxJSONFile bounds files loaded by ReadJSONFile.
const maxJSONFile = 1 << 20

// ReadJSONFile decodes the JSON document at path into v. Unknown fields are
// rejected when v is a struct.
func ReadJSONFile(path string, v any) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() > maxJSONFile {
		return fmt.Errorf("%s is too large (%d bytes)", path, fi.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
