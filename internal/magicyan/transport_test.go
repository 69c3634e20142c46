package magicyan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magicyan/internal/resume"
)

func TestTransport_KeepsEditingState(t *testing.T) {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	doc := resume.AddModule(resume.AddPersonalInfoItem(resume.New(created)))
	doc = resume.UpdatePersonalInfoItem(doc, doc.PersonalInfo[0].ID, resume.InfoPatch{Label: new(string)})

	codec := fixedCodec(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	payload, err := codec.EncodeTransport(doc)
	require.NoError(t, err)

	got, err := codec.DecodeTransport(payload)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
	assert.Equal(t, "", got.Title)
	assert.Equal(t, resume.Timestamp(created), got.UpdatedAt)

	// 导入路径仍然拒绝同样的内容
	_, err = codec.Decode(payload)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestTransport_RejectsBrokenEnvelopes(t *testing.T) {
	codec := fixedCodec(time.Now())
	cases := []struct {
		input string
		want  error
	}{
		{"", ErrEmptyInput},
		{"{oops", ErrMalformedSyntax},
		{"null", ErrMalformedSyntax},
		{`{"data":{}}`, ErrMissingVersion},
		{`{"version":"1.0.0"}`, ErrMissingData},
		{`{"version":"1.0.0","data":[1]}`, ErrMissingData},
		{`{"version":"1.0.0","data":{"title":5}}`, ErrMalformedSyntax},
	}
	for _, tc := range cases {
		_, err := codec.DecodeTransport([]byte(tc.input))
		assert.ErrorIs(t, err, tc.want, tc.input)
	}
}
