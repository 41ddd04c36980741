package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"specimen-gauge/internal/measure"
	"specimen-gauge/internal/session"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// sidecarVersion is bumped on incompatible sidecar changes.
const sidecarVersion = 1

// Sidecar is the JSON written next to each PNG.
type Sidecar struct {
	Version    int            `json:"version"`
	ID         uuid.UUID      `json:"id"`
	CapturedAt time.Time      `json:"captured_at"`
	Image      string         `json:"image"` // relative to the sidecar
	Result     measure.Result `json:"result"`
	Note       string         `json:"note,omitempty"`
	Narrative  string         `json:"narrative,omitempty"`
	Operator   string         `json:"operator,omitempty"`
	PatientCPF string         `json:"patient_cpf,omitempty"`
}

// DirStore persists samples as <id>.png plus <id>.json in one directory.
type DirStore struct {
	Dir string
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}
	return &DirStore{Dir: dir}, nil
}

// Persist implements session.Persister.
func (d *DirStore) Persist(_ context.Context, c *session.Capture, a session.Annotation) error {
	sample, err := NewSample(c, a)
	if err != nil {
		return err
	}

	base := sample.ID.String()
	if err := os.WriteFile(filepath.Join(d.Dir, base+".png"), sample.ImagePNG, 0644); err != nil {
		return errors.Wrap(err, "write image")
	}

	side := Sidecar{
		Version:    sidecarVersion,
		ID:         sample.ID,
		CapturedAt: sample.CapturedAt,
		Image:      base + ".png",
		Result:     sample.Result,
		Note:       sample.Note,
		Narrative:  sample.Narrative,
		Operator:   sample.Operator,
		PatientCPF: CPFDigits(a.PatientRef),
	}
	data, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode sidecar")
	}
	if err := os.WriteFile(filepath.Join(d.Dir, base+".json"), data, 0644); err != nil {
		return errors.Wrap(err, "write sidecar")
	}
	return nil
}

// Load reads the sidecar for id.
func (d *DirStore) Load(id uuid.UUID) (*Sidecar, error) {
	data, err := os.ReadFile(filepath.Join(d.Dir, id.String()+".json"))
	if err != nil {
		return nil, err
	}
	var side Sidecar
	if err := json.Unmarshal(data, &side); err != nil {
		return nil, errors.Wrapf(err, "decode sidecar %s", id)
	}
	return &side, nil
}

// ImagePath returns the absolute path of a sidecar's image.
func (d *DirStore) ImagePath(side *Sidecar) string {
	return filepath.Join(d.Dir, side.Image)
}

// List returns all sidecars ordered by capture time.
func (d *DirStore) List() ([]*Sidecar, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, err
	}
	var out []*Sidecar
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		side, err := d.Load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, side)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CapturedAt.Before(out[j].CapturedAt)
	})
	return out, nil
}
