package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bczgroup/tracker/internal/analysis"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/export/csv"
	"github.com/bczgroup/tracker/internal/export/sqlite"
	exportTypes "github.com/bczgroup/tracker/internal/export/types"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrInvalidHashType   = errors.New("invalid hash type")
)

// Format represents a supported export format.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatCSV    Format = "csv"
)

// EngineVersion is bumped on breaking changes to the exported layout.
const EngineVersion = "1.0.0"

// ManifestFile is written next to the exported files.
const ManifestFile = "export_config.json"

// MemberQuerier runs member history queries.
type MemberQuerier interface {
	QueryMembers(ctx context.Context, filter types.MemberFilter, page types.PageRequest) (*types.MemberPage, error)
}

// Config holds the configuration for exports.
type Config struct {
	ExportVersion string      `json:"exportVersion"`
	Description   string      `json:"description"`
	Formats       []Format    `json:"formats"`
	Anonymizer    *Anonymizer `json:"-"`
}

// Manifest describes a finished export.
type Manifest struct {
	*Config

	EngineVersion string             `json:"engineVersion"`
	HashType      HashType           `json:"hashType,omitempty"`
	Filter        types.MemberFilter `json:"filter"`
	Counts        map[string]int     `json:"counts"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// Exporter writes query results and weekly analyses to files.
type Exporter struct {
	members MemberQuerier
	outDir  string
	config  *Config
	logger  *zap.Logger
}

// New creates a new exporter instance.
func New(members MemberQuerier, outDir string, config *Config, logger *zap.Logger) *Exporter {
	if len(config.Formats) == 0 {
		config.Formats = []Format{FormatSQLite, FormatCSV}
	}

	return &Exporter{
		members: members,
		outDir:  outDir,
		config:  config,
		logger:  logger.Named("exporter"),
	}
}

// Validate checks formats and hashing parameters.
func (c *Config) Validate() error {
	for _, f := range c.Formats {
		if f != FormatSQLite && f != FormatCSV {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
		}
	}

	if c.Anonymizer.Enabled() && !c.Anonymizer.HashType.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidHashType, c.Anonymizer.HashType)
	}

	return nil
}

// Export writes every row matching filter, plus the analyzed weeks when
// given, in each configured format.
func (e *Exporter) Export(
	ctx context.Context, filter types.MemberFilter, weeks []*analysis.GroupWeek,
) (*Manifest, error) {
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	page, err := e.members.QueryMembers(ctx, filter, types.UnlimitedPage())
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}

	e.logger.Info("Fetched rows to export", zap.Int("rows", len(page.Rows)), zap.Int("weeks", len(weeks)))

	hashes := e.hashes(page.Rows, weeks)

	sheets := []*exportTypes.Sheet{MemberSheet(page.Rows, hashes)}
	if len(weeks) > 0 {
		sheets = append(sheets, WeekSheet(weeks, hashes))
	}

	manifest := &Manifest{
		Config:        e.config,
		EngineVersion: EngineVersion,
		Filter:        filter,
		Counts:        make(map[string]int, len(sheets)),
		CreatedAt:     time.Now(),
	}
	if e.config.Anonymizer.Enabled() {
		manifest.HashType = e.config.Anonymizer.HashType
	}

	for _, sheet := range sheets {
		manifest.Counts[sheet.Name] = len(sheet.Rows)
	}

	for _, format := range e.config.Formats {
		e.logger.Info("Writing export", zap.String("format", string(format)))

		if err := e.export(format, sheets); err != nil {
			return nil, fmt.Errorf("failed to export %s format: %w", format, err)
		}
	}

	data, err := sonic.MarshalIndent(manifest, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(e.outDir, ManifestFile), data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write export manifest: %w", err)
	}

	e.logger.Info("Export completed", zap.String("dir", e.outDir))

	return manifest, nil
}

// hashes returns the hashed user ids, or nil when anonymization is off.
func (e *Exporter) hashes(rows []*types.Member, weeks []*analysis.GroupWeek) map[int64]string {
	if !e.config.Anonymizer.Enabled() {
		return nil
	}

	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.UserID)
	}

	for _, gw := range weeks {
		for _, m := range gw.Members {
			ids = append(ids, m.UserID)
		}
	}

	return e.config.Anonymizer.HashIDs(ids)
}

// export handles exporting data in the specified format.
func (e *Exporter) export(format Format, sheets []*exportTypes.Sheet) error {
	var exporter interface {
		Export(sheets []*exportTypes.Sheet) error
	}

	switch format {
	case FormatSQLite:
		exporter = sqlite.New(e.outDir)
	case FormatCSV:
		exporter = csv.New(e.outDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return exporter.Export(sheets)
}
