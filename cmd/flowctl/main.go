// Command flowctl is a thin HTTP client for a running flowserver: it
// posts a workflow file to /workflows/validate or /workflows/execute
// and prints the result. Grounded on the teacher's cmd/citadel/main.go
// os.Args subcommand dispatch and cmd/cli/main.go's bare net/http
// client usage (no HTTP client framework in either).
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	if len(os.Args) < 3 {
		showHelp()
		os.Exit(1)
	}

	command := os.Args[1]
	arg := os.Args[2]
	apiURL := envOrDefault("FLOWCTL_API_URL", "http://localhost:8088")

	switch command {
	case "validate":
		if err := postWorkflow(apiURL+"/workflows/validate", arg); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "execute":
		if err := streamExecute(apiURL+"/workflows/execute", arg); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "activate":
		if err := postPluginLifecycle(apiURL, arg, "activate"); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "deactivate":
		if err := postPluginLifecycle(apiURL, arg, "deactivate"); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		showHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("Usage: flowctl <command> <argument>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  validate <file>         statically validate a workflow file")
	fmt.Println("  execute <file>          run a workflow file and stream its events")
	fmt.Println("  activate <plugin-id>    activate a discovered plugin")
	fmt.Println("  deactivate <plugin-id>  deactivate a loaded plugin")
	fmt.Println()
	fmt.Println("FLOWCTL_API_URL overrides the default http://localhost:8088")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func postWorkflow(url, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading workflow file: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("calling flowserver: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(out))
	}
	return nil
}

// postPluginLifecycle calls flowserver's /plugins/:id/activate or
// /plugins/:id/deactivate route, the CLI surface for
// internal/plugins.Manager's lifecycle operations (spec.md §4.D).
func postPluginLifecycle(apiURL, pluginID, action string) error {
	url := fmt.Sprintf("%s/plugins/%s/%s", apiURL, pluginID, action)

	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("calling flowserver: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(out))
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("flowserver returned %s", resp.Status)
	}
	return nil
}

func streamExecute(url, path string) error {
	wfBody, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading workflow file: %w", err)
	}

	req := map[string]json.RawMessage{"workflow": wfBody}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("calling flowserver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("flowserver returned %s: %s", resp.Status, out)
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if readErr != nil {
			if readErr != io.EOF {
				return readErr
			}
			return nil
		}
	}
}
