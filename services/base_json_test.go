package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silvereye/apperr"
	"silvereye/models"
)

func TestPrepareBaseJSON(t *testing.T) {
	frame := frameOf([]string{"date", "buyer/name", "buyer/identifier/scheme", "buyer/identifier/id"},
		[]string{"2020-08-01T00:00:00Z", "Telford & Wrekin", "GB-LAC", "E06000020"},
		[]string{"2020-08-03T10:15:00Z", "Other", "", ""},
		[]string{"", "", "", ""},
	)

	base, err := PrepareBaseJSON(frame, "https://example.org/")
	require.NoError(t, err)
	assert.Equal(t, models.BaseJSON{
		Version:       "1.1",
		Publisher:     models.Publisher{Name: "Telford & Wrekin", Scheme: "GB-LAC", UID: "E06000020"},
		PublishedDate: "2020-08-03T10:15:00Z",
		URI:           "https://example.org/",
	}, base)
}

func TestPrepareBaseJSONErrors(t *testing.T) {
	_, err := PrepareBaseJSON(models.NewFrame("date"), "")
	assert.True(t, errors.Is(err, apperr.ErrEmptyInput))

	_, err = PrepareBaseJSON(frameOf([]string{"date"}, []string{"03/08/2020"}), "")
	assert.True(t, errors.Is(err, apperr.ErrDataFormat))

	_, err = PrepareBaseJSON(frameOf([]string{"date"}, []string{""}), "")
	assert.True(t, errors.Is(err, apperr.ErrDataFormat))
}

func TestNewBaseJSONFormatsUTC(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	base := NewBaseJSON(models.Publisher{Name: "x"}, "u", time.Date(2020, 8, 24, 13, 30, 5, 0, loc))
	assert.Equal(t, "2020-08-24T12:30:05Z", base.PublishedDate)
}
