package export_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bczgroup/tracker/internal/analysis"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/export"
	"github.com/bczgroup/tracker/internal/export/sqlite"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMembers struct {
	rows   []*types.Member
	filter types.MemberFilter
	page   types.PageRequest
}

func (f *fakeMembers) QueryMembers(_ context.Context, filter types.MemberFilter, page types.PageRequest) (*types.MemberPage, error) {
	f.filter, f.page = filter, page
	return &types.MemberPage{Rows: f.rows, Count: len(f.rows)}, nil
}

func testRows() []*types.Member {
	at := time.Date(2024, 3, 4, 23, 59, 0, 0, time.UTC)

	return []*types.Member{
		{UserID: 12345, Nickname: "al", GroupID: 1, GroupName: "Readers", TodayDate: "2024-03-04", CompletedTime: "07:00:00", DataTime: at},
		{UserID: 54321, Nickname: "bo", GroupID: 1, GroupName: "Readers", TodayDate: "2024-03-04", StudyCheat: true, DataTime: at},
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	members := &fakeMembers{rows: testRows()}
	outDir := filepath.Join(t.TempDir(), "out")

	window, err := analysis.ParseWeek("2024-W10", time.UTC)
	require.NoError(t, err)

	weeks := []*analysis.GroupWeek{{
		Group:  &types.ObservedGroup{GroupInfo: types.GroupInfo{GroupID: 1, Name: "Readers"}},
		Week:   window.String(),
		Window: window,
		Members: []*analysis.MemberStats{{
			Member: &types.Member{UserID: 12345, Nickname: "al"},
			Days:   []analysis.DayRecord{{Date: "2024-03-05", CompletedTime: "07:00:00"}},
		}},
	}}

	filter := types.MemberFilter{GroupID: 1}
	exporter := export.New(members, outDir, &export.Config{ExportVersion: "1.0.0"}, zap.NewNop())

	manifest, err := exporter.Export(context.Background(), filter, weeks)
	require.NoError(t, err)

	assert.True(t, members.page.Unlimited)
	assert.Equal(t, filter, members.filter)
	assert.Equal(t, map[string]int{export.SheetMembers: 2, export.SheetWeek: 1}, manifest.Counts)

	for _, name := range []string{sqlite.FileName, "members.csv", "week.csv", export.ManifestFile} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	data, err := os.ReadFile(filepath.Join(outDir, "week.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024-W10,1,Readers,12345,al,0,0,0,,07:00:00,,,,,")

	var decoded map[string]any
	raw, err := os.ReadFile(filepath.Join(outDir, export.ManifestFile))
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(raw, &decoded))
	assert.Equal(t, export.EngineVersion, decoded["engineVersion"])
}

func TestExportAnonymized(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	config := &export.Config{
		Formats: []export.Format{export.FormatCSV},
		Anonymizer: &export.Anonymizer{
			Salt:       "test_salt",
			HashType:   export.HashTypeSHA256,
			Iterations: 1,
		},
	}

	manifest, err := export.New(&fakeMembers{rows: testRows()}, outDir, config, zap.NewNop()).
		Export(context.Background(), types.MemberFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, export.HashTypeSHA256, manifest.HashType)
	assert.NoFileExists(t, filepath.Join(outDir, sqlite.FileName))

	data, err := os.ReadFile(filepath.Join(outDir, "members.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ce3807a728757fad6c9eb6f3934c71363857bca5f8f9d7a67452543acf47ac42,al")
	assert.NotContains(t, string(data), "12345")
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	err := (&export.Config{Formats: []export.Format{"xlsx"}}).Validate()
	require.ErrorIs(t, err, export.ErrUnsupportedFormat)

	err = (&export.Config{Anonymizer: &export.Anonymizer{Salt: "s", HashType: "md5"}}).Validate()
	require.ErrorIs(t, err, export.ErrInvalidHashType)

	require.NoError(t, (&export.Config{Anonymizer: &export.Anonymizer{HashType: "md5"}}).Validate())
}
