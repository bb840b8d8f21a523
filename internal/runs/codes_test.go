package runs

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-HJKMNP-Z2-9]{5}$`)

func TestGenerateCode_Alphabet(t *testing.T) {
	for range 200 {
		code, err := GenerateCode()
		require.NoError(t, err)
		if !codePattern.MatchString(code) {
			t.Errorf("GenerateCode() = %q, want 5 unambiguous characters", code)
		}
	}
}

func TestCodeFrom_SkipsBiasedBytes(t *testing.T) {
	src := bytes.NewReader([]byte{0, 1, 255, 30, 31, 248, 2, 3, 4, 5})
	code, err := codeFrom(src)
	require.NoError(t, err)
	assert.Equal(t, "AB9AC", code)
}

func TestCodeFrom_ShortRead(t *testing.T) {
	_, err := codeFrom(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestGenerateCode_RarelyRepeats(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		code, err := GenerateCode()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	assert.GreaterOrEqual(t, len(seen), 998)
}
