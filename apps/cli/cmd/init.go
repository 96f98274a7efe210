package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcst/packages/core/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a config file and an example request file",
	Long: `Initialize a directory for httpcst.

This creates:
  - .httpcst.yaml         - Configuration file
  - http-client.env.json  - Environments with their variables
  - example.http          - Example request file

Examples:
  httpcst init
  httpcst init ./api --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleEnvironments = `{
  "dev": {
    "host": "localhost:3000"
  },
  "staging": {
    "host": "staging.api.example.com"
  }
}
`

const exampleRequests = `### Health check
GET http://{{host}}/health

> {%
    client.test("is up", function () {
        client.assert(response.status === 200, "expected 200");
    });
%}

### Create a resource
POST http://{{host}}/resources
Content-Type: application/json

{
  "name": "Test Resource",
  "requestId": "{{$uuid}}"
}

> {% client.global.set("resourceId", response.body.id); %}

### Fetch it back
GET http://{{host}}/resources/{{resourceId}}
Accept: application/json

>> ./resource.json
`

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	configFile := filepath.Join(dir, ".httpcst.yaml")
	envFile := filepath.Join(dir, "http-client.env.json")
	exampleFile := filepath.Join(dir, "example.http")

	if !forceInit {
		for _, f := range []string{configFile, envFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	c := config.DefaultConfig()
	c.Headers = map[string]string{"User-Agent": "httpcst/" + version}
	if err := c.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	for _, f := range []struct{ path, content string }{
		{envFile, exampleEnvironments},
		{exampleFile, exampleRequests},
	} {
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to create %s: %w", f.path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", f.path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nRun 'httpcst run %s' to send the example requests.\n", exampleFile)
	return nil
}
