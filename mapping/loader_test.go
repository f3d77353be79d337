package mapping

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silvereye/apperr"
	"silvereye/models"
)

const header = "csv_header,uri,tender_csv,award_csv,spend_csv,required,default,reference,contracts_finder_daily_csv_path\n"

func parse(t *testing.T, body string) (*Table, error) {
	t.Helper()
	return Parse(strings.NewReader(header + body))
}

func TestLoadShippedTable(t *testing.T) {
	table, err := Load(filepath.Join("..", "data", "mappings.csv"))
	require.NoError(t, err)

	tender := table.HeadersForNoticeType(models.NoticeTender)
	assert.Contains(t, tender, "Tender Title")
	assert.NotContains(t, tender, "Award Title")

	for _, nt := range models.NoticeTypes {
		assert.True(t, table.HasURI(nt, "ocid"), nt)
		assert.True(t, table.HasURI(nt, "tag"), nt)
		for _, r := range table.SimpleCSVRowsForNoticeType(nt) {
			assert.NotEmpty(t, r.CSVHeader)
		}
	}

	uri, ok := table.URIForHeader(models.NoticeSpend, "Transaction ID")
	require.True(t, ok)
	assert.Equal(t, "contracts/0/implementation/transactions/0/id", uri)
}

func TestParseNormalizesBooleans(t *testing.T) {
	table, err := parse(t, ""+
		"Notice ID,id,TRUE,true,1,True,,,\n"+
		"Tender Title,tender/title,TRUE,FALSE,0,false,,,\n"+
		",ocid,1,1,1,0,,,\n")
	require.NoError(t, err)

	rows := table.Rows()
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Tender && rows[0].Award && rows[0].Spend && rows[0].Required)
	assert.False(t, rows[1].Award || rows[1].Spend || rows[1].Required)

	assert.Len(t, table.RowsForNoticeType(models.NoticeTender), 3)
	assert.Len(t, table.RowsForNoticeType(models.NoticeAward), 2)
	assert.Len(t, table.SimpleCSVRowsForNoticeType(models.NoticeTender), 2)
	assert.Len(t, table.SimpleCSVRowsForNoticeType(models.NoticeAward), 1)
	assert.Equal(t, []string{"Notice ID"}, headersOf(table.RequiredRowsForNoticeType(models.NoticeTender)))
}

func TestParseResolvesReferenceByHeader(t *testing.T) {
	table, err := parse(t, ""+
		"Buyer ID,buyer/id,TRUE,TRUE,TRUE,FALSE,,,\n"+
		",parties/0/id,TRUE,TRUE,TRUE,FALSE,buyer,Buyer ID,\n")
	require.NoError(t, err)
	assert.Equal(t, "buyer/id", table.Rows()[1].Reference)
}

func TestParseConfigurationErrors(t *testing.T) {
	cases := map[string]string{
		"string boolean":          "Notice ID,id,yes,TRUE,TRUE,TRUE,,,\n",
		"blank boolean":           "Notice ID,id,,TRUE,TRUE,TRUE,,,\n",
		"empty uri":               "Notice ID,,TRUE,TRUE,TRUE,TRUE,,,\n",
		"duplicate uri":           "A,id,TRUE,FALSE,FALSE,FALSE,,,\nB,id,TRUE,FALSE,FALSE,FALSE,,,\n",
		"header maps to two uris": "A,id,TRUE,FALSE,FALSE,FALSE,,,\nA,x,FALSE,TRUE,FALSE,FALSE,,,\n",
		"required without header": ",ocid,TRUE,TRUE,TRUE,TRUE,,,\n",
		"unknown reference":       ",parties/0/id,TRUE,TRUE,TRUE,FALSE,,Buyer ID,\n",
		"wrong field count":       "Notice ID,id,TRUE\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parse(t, body)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrConfiguration), err.Error())
		})
	}
}

func TestSameURIAcrossDisjointNoticeTypes(t *testing.T) {
	// Gleiche uri in getrennten Zeilen ist erlaubt, solange sich die Typen nicht überschneiden.
	_, err := parse(t, "A,id,TRUE,FALSE,FALSE,FALSE,,,\nA,id,FALSE,TRUE,FALSE,FALSE,,,\n")
	require.NoError(t, err)
}

func TestParseMissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("csv_header,uri\nNotice ID,id\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
	assert.Contains(t, err.Error(), "tender_csv")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func headersOf(rows []models.MappingRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CSVHeader)
	}
	return out
}
