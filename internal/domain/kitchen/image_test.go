package kitchen

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURI(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

	t.Run("RoundTrip", func(t *testing.T) {
		uri := NewPNGDataURI(raw)
		assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(raw), uri.String())
		assert.Equal(t, "image/png", uri.MIMEType())

		data, err := uri.Bytes()
		require.NoError(t, err)
		assert.Equal(t, raw, data)
	})

	t.Run("PayloadStripsPrefix", func(t *testing.T) {
		payload, err := DataURI("data:image/jpeg;base64,AAAA").Payload()
		require.NoError(t, err)
		assert.Equal(t, "AAAA", payload)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, uri := range []DataURI{"", "AAAA", "data:image/png,AAAA", "data:image/png;base64"} {
			_, err := uri.Bytes()
			assert.ErrorIs(t, err, ErrInvalidDataURI, string(uri))
		}
		_, err := DataURI("data:image/png;base64,!!!").Bytes()
		assert.ErrorIs(t, err, ErrInvalidDataURI)
	})
}

func TestExportName(t *testing.T) {
	tests := []struct {
		name   string
		recipe *Recipe
		want   string
	}{
		{"NoRecipe", nil, DefaultExportName},
		{"EmptyTitle", &Recipe{Title: "  "}, DefaultExportName},
		{"Plain", &Recipe{Title: "김치찌개"}, "김치찌개"},
		{"PathSeparators", &Recipe{Title: "Pork/Garlic: Stir-fry?"}, "Pork-Garlic- Stir-fry-"},
		{"DotsOnly", &Recipe{Title: ".."}, DefaultExportName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExportName(tt.recipe))
		})
	}
}

func TestStateJSON(t *testing.T) {
	s := withImage()
	s.Notice = &Notice{Kind: NoticeModal, Code: CodeSaveFailed}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recipe_flow":"ready"`)

	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s, decoded)
}

func TestNoticeMessages(t *testing.T) {
	for _, code := range []NoticeCode{CodeBlankIngredients, CodeRecipeFailed, CodeImageFailed, CodeEditFailed, CodeSaveFailed} {
		n := Notice{Kind: NoticeInline, Code: code}
		assert.NotEmpty(t, n.Message(LocaleKorean), code)
		assert.NotEmpty(t, n.Message(LocaleEnglish), code)
	}
	assert.Equal(t, LocaleKorean, ParseLocale("fr"))
	assert.Equal(t, LocaleEnglish, ParseLocale("en"))
}
