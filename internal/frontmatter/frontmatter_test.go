package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsFullBody(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, style, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Nil(t, fm)
	require.Equal(t, input, body)
	require.Equal(t, "\n", style.Newline)
}

func TestSplit_EmptyBlock_ReturnsHadWithEmptyFields(t *testing.T) {
	input := []byte("---\n---\n# Title\n")

	fm, body, had, _, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_ValidBlock_ReturnsFieldsAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ncategories:\n  - Article\n---\nBody text\n")

	fm, body, had, _, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Hello\ncategories:\n  - Article\n"), fm)
	require.Equal(t, []byte("Body text\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	input := []byte("---\ntitle: Hello\nBody text\n")

	_, _, had, _, err := Split(input)
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLFNewlines_Detected(t *testing.T) {
	input := []byte("---\r\ntitle: Hello\r\n---\r\nBody\r\n")

	fm, body, had, style, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "\r\n", style.Newline)
	require.Equal(t, []byte("title: Hello\r\n"), fm)
	require.Equal(t, []byte("Body\r\n"), body)
}

func TestJoin_RoundTripsSplit(t *testing.T) {
	input := []byte("---\ntitle: Hello\n---\nBody\n")

	fm, body, had, style, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, input, Join(fm, body, had, style))
}

func TestParseYAML_EmptyInput_YieldsEmptyMap(t *testing.T) {
	fields, err := ParseYAML(nil)
	require.NoError(t, err)
	require.NotNil(t, fields)
	require.Empty(t, fields)
}

func TestParseYAML_Invalid_ReturnsError(t *testing.T) {
	_, err := ParseYAML([]byte(": not yaml"))
	require.Error(t, err)
}

func TestSerializeYAML_SortsKeysDeterministically(t *testing.T) {
	fields := map[string]any{
		"title":      "Hello",
		"draft":      true,
		"categories": []string{"Article", "DataStructures"},
	}

	out1, err := SerializeYAML(fields, Style{})
	require.NoError(t, err)
	out2, err := SerializeYAML(fields, Style{})
	require.NoError(t, err)
	require.Equal(t, out1, out2)
	require.Equal(t, "categories:\n  - Article\n  - DataStructures\ndraft: true\ntitle: Hello\n", string(out1))
}

func TestSerializeYAML_EmptyFields_ReturnsEmpty(t *testing.T) {
	out, err := SerializeYAML(nil, Style{})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSerializeYAML_NestedMapAndCRLF(t *testing.T) {
	fields := map[string]any{
		"image": map[string]any{
			"path": "/assets/img/cover.jpg",
			"alt":  "cover",
		},
	}

	out, err := SerializeYAML(fields, Style{Newline: "\r\n"})
	require.NoError(t, err)
	require.Equal(t, "image:\r\n  alt: cover\r\n  path: /assets/img/cover.jpg\r\n", string(out))
}
