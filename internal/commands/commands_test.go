package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/drewfead/showtimes/internal/boxoffice"
	"github.com/drewfead/showtimes/internal/commands"
	"github.com/drewfead/showtimes/internal/config"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		config.KeyShowtimesURL,
		config.KeyWebsiteID,
		config.KeyTheaterID,
		config.KeyScheduleEndpoint,
		config.KeyChromePath,
		config.KeyTimeZone,
	} {
		t.Setenv(k, "")
	}
}

func writeEnvFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "theater.env")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func newApp(out *bytes.Buffer) *cli.App {
	return &cli.App{
		Name:     "showtimes",
		Commands: commands.Scrapers,
		Writer:   out,
	}
}

const brokenBrowserEnv = "SHOWTIMES_URL=https://example.com/showtimes/\n" +
	"WEBSITE_ID=token\n" +
	"THEATER_ID=X065X\n" +
	"SCHEDULE_ENDPOINT=https://example.com/api/schedule\n" +
	"CHROME_PATH=/nonexistent/chromium\n"

func Test_Unit_Commands(t *testing.T) {
	tests := []struct {
		name         string
		envFile      string
		args         []string
		expectOutput string
		expectError  error
		expectMsg    string
	}{
		{
			name:         "endpoints with failed discovery prints empty list",
			envFile:      brokenBrowserEnv,
			args:         []string{"endpoints"},
			expectOutput: "[]\n",
		},
		{
			name:         "endpoints text output",
			envFile:      brokenBrowserEnv,
			args:         []string{"endpoints", "--output", "text"},
			expectOutput: "",
		},
		{
			name:      "unsupported output",
			envFile:   brokenBrowserEnv,
			args:      []string{"endpoints", "--output", "xml"},
			expectMsg: "unsupported output format xml",
		},
		{
			name:        "movies without a catalog",
			envFile:     brokenBrowserEnv,
			args:        []string{"movies"},
			expectError: boxoffice.ErrCatalogNotFound,
		},
		{
			name:        "showtimes without a catalog",
			envFile:     brokenBrowserEnv,
			args:        []string{"showtimes", "--strict-probing"},
			expectError: boxoffice.ErrCatalogNotFound,
		},
		{
			name:      "missing configuration",
			envFile:   "SHOWTIMES_URL=https://example.com/showtimes/\n",
			args:      []string{"showtimes"},
			expectMsg: "WEBSITE_ID, THEATER_ID, SCHEDULE_ENDPOINT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeEnvFile(t, tt.envFile)

			var out bytes.Buffer
			args := append([]string{"showtimes"}, tt.args[0], "--env-file", path)
			args = append(args, tt.args[1:]...)
			err := newApp(&out).Run(args)

			switch {
			case tt.expectError != nil:
				assert.ErrorIs(t, err, tt.expectError)
			case tt.expectMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectOutput, out.String())
			}
		})
	}
}
