package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

func TestParseCountHint(t *testing.T) {
	hint, err := parseCountHint("")
	require.NoError(t, err)
	assert.Equal(t, domain.CountIntent(""), hint)

	hint, err = parseCountHint("Category")
	require.NoError(t, err)
	assert.Equal(t, domain.CountIntentCategory, hint)

	_, err = parseCountHint("sum")
	assert.Error(t, err)
}

func TestRootRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"classify", "search", "answer", "stores", "count", "import-stores"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestAnswerRejectsHalfLocation(t *testing.T) {
	rootCmd.SetArgs([]string{"answer", "--lat", "43.6", "where can I buy aero"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--lat and --lng")
}

func TestStoresRequiresProductOrQuery(t *testing.T) {
	rootCmd.SetArgs([]string{"stores", "--lat", "43.6", "--lng", "-79.3"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--product")
}
