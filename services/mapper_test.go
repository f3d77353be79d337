package services

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silvereye/apperr"
	"silvereye/mapping"
	"silvereye/models"
)

func loadTable(t *testing.T) *mapping.Table {
	t.Helper()
	table, err := mapping.Load(filepath.Join("..", "data", "mappings.csv"))
	require.NoError(t, err)
	return table
}

func newMapper(t *testing.T, nt models.NoticeType) *CSVMapper {
	t.Helper()
	m, err := NewCSVMapper(loadTable(t), nt, MapperOptions{OCIDPrefix: "ocds-testprefix-"})
	require.NoError(t, err)
	return m
}

func frameOf(columns []string, rows ...[]string) *models.Frame {
	f := models.NewFrame(columns...)
	for _, row := range rows {
		rec := models.Record{}
		for i, c := range columns {
			rec[c] = row[i]
		}
		f.Records = append(f.Records, rec)
	}
	return f
}

func TestDetectNoticeType(t *testing.T) {
	cases := []struct {
		name    string
		columns []string
		want    models.NoticeType
	}{
		{"tender only", []string{"Notice ID", "Tender Title", "Buyer Name"}, models.NoticeTender},
		{"award wins over tender", []string{"Notice ID", "Tender Title", "Award Title"}, models.NoticeAward},
		{"spend wins over tender", []string{"Tender Title", "Transaction ID"}, models.NoticeSpend},
		{"award wins over spend", []string{"Transaction ID", "Award Title"}, models.NoticeAward},
		{"ocds paths", []string{"id", "awards/0/title"}, models.NoticeAward},
		{"ocds tender path", []string{"id", "tender/title"}, models.NoticeTender},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectNoticeType(tc.columns)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := DetectNoticeType([]string{"Notice ID", "Buyer Name"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnknownNoticeType))
}

func TestNewCSVMapperRequiresNoticeType(t *testing.T) {
	_, err := NewCSVMapper(loadTable(t), "", MapperOptions{})
	assert.True(t, errors.Is(err, apperr.ErrUnknownNoticeType))

	_, err = NewCSVMapper(nil, models.NoticeTender, MapperOptions{})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	m, err := NewDetectedCSVMapper(loadTable(t), models.NewFrame("Award Title"), MapperOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.NoticeAward, m.NoticeType())
}

func TestRenameFriendlyToOCDS(t *testing.T) {
	m := newMapper(t, models.NoticeTender)
	in := frameOf([]string{"Notice ID", "Tender Title", "Internal Ref", "Award Title"},
		[]string{"1", "Roads", "x", "ignored"})

	out, err := m.RenameFriendlyToOCDS(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "tender/title"}, out.Columns)
	assert.Equal(t, models.Record{"id": "1", "tender/title": "Roads"}, out.Records[0])

	again, err := m.RenameFriendlyToOCDS(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRenameRejectsCollidingColumns(t *testing.T) {
	m := newMapper(t, models.NoticeTender)
	_, err := m.RenameFriendlyToOCDS(frameOf([]string{"Tender Title", "tender/title"}, []string{"a", "b"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDataFormat))
}

func TestAugmentDefaultsNeverOverwrite(t *testing.T) {
	m := newMapper(t, models.NoticeTender)
	in := frameOf([]string{"id", "tender/status"},
		[]string{"1", ""},
		[]string{"2", "cancelled"})

	out, err := m.Augment(in)
	require.NoError(t, err)

	assert.Equal(t, "active", out.Records[0]["tender/status"])
	assert.Equal(t, "cancelled", out.Records[1]["tender/status"])
	assert.True(t, out.HasColumn("tender/value/currency"))
	for _, rec := range out.Records {
		assert.Equal(t, "GBP", rec["tender/value/currency"])
		assert.Equal(t, "tender", rec["initiationType"])
	}
	// Eingabe bleibt unverändert
	assert.Equal(t, "", in.Records[0]["tender/status"])
	assert.False(t, in.HasColumn("ocid"))
}

func TestAugmentReferenceBeforeDefault(t *testing.T) {
	m := newMapper(t, models.NoticeTender)
	in := frameOf([]string{"id", "buyer/id", "buyer/name", "parties/0/id"},
		[]string{"1", "GB-123", "Highways", ""},
		[]string{"2", "", "Council", ""},
		[]string{"3", "GB-456", "", "existing"})

	out, err := m.Augment(in)
	require.NoError(t, err)

	assert.Equal(t, "GB-123", out.Records[0]["parties/0/id"])
	assert.Equal(t, "buyer", out.Records[1]["parties/0/id"])
	assert.Equal(t, "existing", out.Records[2]["parties/0/id"])

	assert.Equal(t, "Highways", out.Records[0]["parties/0/name"])
	assert.Equal(t, "Council", out.Records[1]["parties/0/name"])
	assert.True(t, out.Records[2].IsNull("parties/0/name"))

	// tender/id verweist auf id
	assert.Equal(t, "2", out.Records[1]["tender/id"])
}

func TestAugmentSynthesizesOCIDAndTag(t *testing.T) {
	in := frameOf([]string{"id"}, []string{"12345"}, []string{"678"}, []string{""})

	out, err := newMapper(t, models.NoticeSpend).Augment(in)
	require.NoError(t, err)

	assert.Equal(t, "ocds-testprefix-12345", out.Records[0]["ocid"])
	assert.Equal(t, "ocds-testprefix-678", out.Records[1]["ocid"])
	assert.True(t, out.Records[2].IsNull("ocid"))
	for _, rec := range out.Records {
		assert.Equal(t, "implementation", rec["tag"])
	}

	award, err := newMapper(t, models.NoticeAward).Augment(in)
	require.NoError(t, err)
	assert.Equal(t, "award", award.Records[0]["tag"])
}

func TestAugmentRequiresID(t *testing.T) {
	_, err := newMapper(t, models.NoticeTender).Augment(frameOf([]string{"tender/title"}, []string{"x"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDataFormat))
}

func TestRenameOutputFriendlyRoundTrip(t *testing.T) {
	table := loadTable(t)
	m := newMapper(t, models.NoticeAward)

	headers := table.HeadersForNoticeType(models.NoticeAward)
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = "value of " + h
	}
	in := frameOf(append(append([]string{}, headers...), "Unrecognised"), append(row, "dropped"))

	ocds, err := m.RenameFriendlyToOCDS(in)
	require.NoError(t, err)
	back := m.OutputFriendly(ocds)

	assert.Equal(t, headers, back.Columns)
	for _, h := range headers {
		assert.Equal(t, in.Records[0][h], back.Records[0][h], h)
	}
	_, has := back.Records[0]["Unrecognised"]
	assert.False(t, has)
}

func TestOutputFriendlyReindexes(t *testing.T) {
	m := newMapper(t, models.NoticeTender)
	out := m.OutputFriendly(frameOf([]string{"tender/title", "ocid", "id"}, []string{"Roads", "ocds-x-1", "1"}))

	assert.Equal(t, loadTable(t).HeadersForNoticeType(models.NoticeTender), out.Columns)
	assert.Equal(t, "Roads", out.Records[0]["Tender Title"])
	assert.Equal(t, "1", out.Records[0]["Notice ID"])
	assert.Equal(t, "", out.Records[0]["Buyer Name"])
	assert.NotContains(t, out.Columns, "ocid")
}

func TestConvertContractsFinder(t *testing.T) {
	m := newMapper(t, models.NoticeTender)
	in := frameOf([]string{"releases/0/id", "releases/0/tender/title", "releases/0/publisher/name"},
		[]string{"ocds-b5fd17-abc", "Roads", "CF"})

	out, err := m.ConvertContractsFinder(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "tender/title"}, out.Columns)
	assert.Equal(t, "abc", out.Records[0]["id"])

	_, err = m.ConvertContractsFinder(frameOf([]string{"foo"}, []string{"bar"}))
	assert.True(t, errors.Is(err, apperr.ErrDataFormat))
}

func TestCreateSimpleCSVTemplate(t *testing.T) {
	table := loadTable(t)

	var buf bytes.Buffer
	require.NoError(t, CreateSimpleCSVTemplate(&buf, table, models.NoticeSpend))
	line := strings.TrimSuffix(buf.String(), "\n")
	assert.Equal(t, strings.Join(table.HeadersForNoticeType(models.NoticeSpend), ","), line)
	assert.NotContains(t, line, "ocid")

	err := CreateSimpleCSVTemplate(&buf, table, "contract")
	assert.True(t, errors.Is(err, apperr.ErrUnknownNoticeType))
}

func TestWriteTemplateUsesMapperNoticeType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newMapper(t, models.NoticeAward).WriteTemplate(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Notice ID,"))
	assert.Contains(t, buf.String(), "Award Title")
	assert.NotContains(t, buf.String(), "Transaction ID")
}
