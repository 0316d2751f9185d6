package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Renderer writes the terminal outcome of a command. It is a boundary
// collaborator: the value it receives is already fully resolved and
// JSON-serializable, no validation or network logic happens here.
type Renderer struct {
	config *Config
	stdout io.Writer
	stderr io.Writer
}

func NewRenderer(config *Config) *Renderer {
	return &Renderer{config: config, stdout: os.Stdout, stderr: os.Stderr}
}

// Render serializes the result to the configured destination. Console mode
// pretty-prints, json mode emits compact JSON suitable for piping.
func (r *Renderer) Render(result any) error {
	if result == nil {
		result = json.RawMessage("null")
	}

	var b []byte
	var err error
	switch r.config.Out {
	case OutputJSON:
		b, err = json.Marshal(result)
	default:
		b, err = json.MarshalIndent(result, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize result: %v", err)
	}

	if r.config.File != "" {
		return os.WriteFile(r.config.File, append(b, '\n'), 0o644)
	}
	_, err = fmt.Fprintln(r.stdout, string(b))
	return err
}

// RenderError reports a terminal command failure on stderr.
func (r *Renderer) RenderError(err error) {
	color.New(color.FgRed).Fprintf(r.stderr, "error (%s): %v\n", ErrorCategory(err), err)
}
