package report

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/tumorstat/internal/pipeline"
	"github.com/KaramelBytes/tumorstat/internal/utils"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the run manifest inside the output directory.
const ManifestFile = "manifest.yaml"

// Manifest records what a single run read and wrote.
type Manifest struct {
	RunID             string     `yaml:"run_id"`
	CreatedAt         time.Time  `yaml:"created_at"`
	Inputs            []string   `yaml:"inputs"`
	SubjectsBefore    int        `yaml:"subjects_before"`
	SubjectsAfter     int        `yaml:"subjects_after"`
	DuplicateSubjects []string   `yaml:"duplicate_subjects,omitempty"`
	Regimens          []string   `yaml:"regimens,omitempty"`
	Artifacts         []Artifact `yaml:"artifacts,omitempty"`
	Warnings          []string   `yaml:"warnings,omitempty"`
}

// NewManifest describes res and the artifacts written for it.
func NewManifest(res *pipeline.Result, artifacts []Artifact) *Manifest {
	m := &Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Inputs:    []string{res.MetadataPath, res.ResultsPath},
		Artifacts: artifacts,
		Warnings:  res.Warnings,
	}
	if c := res.Cleaned; c != nil {
		m.SubjectsBefore = c.SubjectsBefore
		m.SubjectsAfter = c.SubjectsAfter
		m.DuplicateSubjects = c.DuplicateIDs
	}
	for _, s := range res.Summaries {
		m.Regimens = append(m.Regimens, s.Regimen)
	}
	return m
}

// WriteManifest saves m as YAML in dir and returns the written path.
func WriteManifest(dir string, m *Manifest) (string, error) {
	b, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	return utils.WriteInDir(dir, ManifestFile, b)
}
