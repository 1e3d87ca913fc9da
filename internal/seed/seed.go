// Package seed loads the initial machine inventory from YAML and copies
// inventories between stores.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"labmaint/internal/maintenance"
	"labmaint/internal/types"
)

//go:embed default.yaml
var defaultInventory []byte

// File is the seed file layout.
type File struct {
	Machines []Machine `yaml:"maquinas"`
}

// Machine is one seed entry.
type Machine struct {
	Name        string             `yaml:"nombre"`
	Laboratory  string             `yaml:"laboratorio"`
	Obligations []types.Obligation `yaml:"mantenimientos"`
}

// Default returns the embedded inventory.
func Default() (*File, error) {
	return Decode(bytes.NewReader(defaultInventory))
}

// LoadFile reads a seed file from disk. An empty path means the embedded
// inventory.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a seed document. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every machine is named and every due date parses.
func (f *File) Validate() error {
	if len(f.Machines) == 0 {
		return types.NewAppError(types.ErrCodeValidationMissingField, "seed file has no machines", nil)
	}
	for i, m := range f.Machines {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Laboratory) == "" {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
				"machine needs nombre and laboratorio", nil, map[string]any{"index": i})
		}
		for _, ob := range m.Obligations {
			if strings.TrimSpace(ob.Type) == "" {
				return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
					"obligation needs tipo", nil, map[string]any{"machine": m.Name})
			}
			if _, err := maintenance.ParseDueDate(ob.DueDate); err != nil {
				return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidDateFormat,
					"invalid fecha_limite", err, map[string]any{"machine": m.Name, "tipo": ob.Type})
			}
		}
	}
	return nil
}

// Build turns the seed entries into machine documents with empty history.
func (f *File) Build(now time.Time) []*types.Machine {
	out := make([]*types.Machine, 0, len(f.Machines))
	for _, m := range f.Machines {
		obligations := make(types.ObligationList, 0, len(m.Obligations))
		for _, ob := range m.Obligations {
			if ob.Status == "" {
				ob.Status = types.StatusOnTrack
			}
			ob.RecordedAt = now
			obligations = append(obligations, ob)
		}
		out = append(out, &types.Machine{
			Name:        strings.TrimSpace(m.Name),
			Laboratory:  strings.TrimSpace(m.Laboratory),
			Obligations: obligations,
			History:     types.HistoryList{},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}

// Apply replaces the contents of repo with the seed inventory.
func Apply(ctx context.Context, repo types.MachineRepository, f *File, now time.Time, logger *slog.Logger) (int, error) {
	machines := f.Build(now)
	if err := repo.ReplaceAll(ctx, machines); err != nil {
		return 0, err
	}
	logger.InfoContext(ctx, "machines seeded", "count", len(machines))
	return len(machines), nil
}

// Migrate copies every machine from one store to another, replacing the
// target's contents. An empty source leaves the target untouched.
func Migrate(ctx context.Context, from, to types.MachineRepository, logger *slog.Logger) (int, error) {
	machines, err := from.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("read source store: %w", err)
	}
	if len(machines) == 0 {
		logger.WarnContext(ctx, "source store is empty; nothing migrated")
		return 0, nil
	}
	if err := to.ReplaceAll(ctx, machines); err != nil {
		return 0, fmt.Errorf("write target store: %w", err)
	}
	logger.InfoContext(ctx, "machines migrated", "count", len(machines))
	return len(machines), nil
}
