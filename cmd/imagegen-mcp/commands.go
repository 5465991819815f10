package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/imagegen-mcp/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP on stdio (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(a.registry, a.log.With("component", "server"), server.WithShutdown(a.Close))
	if err != nil {
		_ = a.Close()
		return err
	}
	return srv.Serve(cmd.Context(), os.Stdin, os.Stdout)
}

var (
	flagEmail    string
	flagPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the browser session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "login", map[string]interface{}{
			"email":    flagEmail,
			"password": flagPassword,
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and delete the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "logout", nil)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the browser session is logged in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "get_session_status", nil)
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "list_models", nil)
	},
}

var (
	flagModel          string
	flagSavePath       string
	flagAspectRatio    string
	flagNegativePrompt string
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate one image and print where it was saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "generate_image", map[string]interface{}{
			"prompt":         args[0],
			"model":          flagModel,
			"savePath":       flagSavePath,
			"aspectRatio":    flagAspectRatio,
			"negativePrompt": flagNegativePrompt,
			"email":          flagEmail,
			"password":       flagPassword,
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, generateCmd} {
		c.Flags().StringVar(&flagEmail, "email", "", "Account email (default $ELEVENLABS_EMAIL)")
		c.Flags().StringVar(&flagPassword, "password", "", "Account password (default $ELEVENLABS_PASSWORD)")
	}

	generateCmd.Flags().StringVarP(&flagModel, "model", "m", "", "Model id, see 'imagegen-mcp models'")
	generateCmd.Flags().StringVarP(&flagSavePath, "out", "o", "", "Directory to save the image")
	generateCmd.Flags().StringVarP(&flagAspectRatio, "aspect-ratio", "a", "", `Aspect ratio such as "16:9"`)
	generateCmd.Flags().StringVar(&flagNegativePrompt, "negative", "", "What to avoid in the image")
}

// runTool executes one registered tool outside MCP and prints its JSON result.
func runTool(cmd *cobra.Command, name string, args map[string]interface{}) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", cerr)
		}
	}()

	tool, ok := a.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}

	raw, err := json.Marshal(compact(args))
	if err != nil {
		return err
	}

	out, _, err := tool.Execute(cmd.Context(), raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// compact drops empty string flags so tool defaults apply.
func compact(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	return out
}
