package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-ensemble/models/postprocess"
	"github.com/pkg/errors"
)

// DetectionFile is one detection set read from disk, typically the output of
// a single model or augmented inference pass.
type DetectionFile struct {
	// Path is the path to the file.
	Path string
	// Detections are the parsed records in file order.
	Detections []postprocess.Detection
}

// LoadDetectionFile reads a JSON array of 7-number detection records.
//
// Arguments:
// - path: Path to the JSON file.
//
// Returns:
// - DetectionFile: The parsed detection set.
// - error: If the file cannot be read or decoded, or a record is malformed.
func LoadDetectionFile(path string) (DetectionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DetectionFile{}, errors.Wrap(err, "failed to read detection file")
	}

	var records [][]float32
	if err := json.Unmarshal(data, &records); err != nil {
		return DetectionFile{}, errors.Wrapf(err, "failed to decode %s", path)
	}

	detections, err := postprocess.DetectionsFromRecords(records)
	if err != nil {
		return DetectionFile{}, errors.Wrapf(err, "%s", path)
	}

	return DetectionFile{Path: path, Detections: detections}, nil
}

// LoadDetectionFiles reads every .json detection file in a directory.
//
// Arguments:
// - dir: Directory path containing detection files.
//
// Returns:
// - []DetectionFile: One entry per file, ordered by file name.
// - error: Error if any file fails to load.
func LoadDetectionFiles(dir string) ([]DetectionFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []DetectionFile
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".json" {
			continue
		}
		file, err := LoadDetectionFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, nil
}

// LoadDetections loads path as a directory of detection files or as a single
// file, and concatenates every set in load order.
func LoadDetections(path string) ([]postprocess.Detection, []DetectionFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	var files []DetectionFile
	if info.IsDir() {
		files, err = LoadDetectionFiles(path)
		if err != nil {
			return nil, nil, err
		}
	} else {
		file, err := LoadDetectionFile(path)
		if err != nil {
			return nil, nil, err
		}
		files = []DetectionFile{file}
	}

	var all []postprocess.Detection
	for _, f := range files {
		all = append(all, f.Detections...)
	}
	return all, files, nil
}

// WriteDetectionFile writes detections as a JSON array of 7-number records.
func WriteDetectionFile(path string, detections []postprocess.Detection) error {
	data, err := json.Marshal(postprocess.RecordsFromDetections(detections))
	if err != nil {
		return errors.Wrap(err, "failed to encode detections")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write detection file")
	}
	return nil
}
