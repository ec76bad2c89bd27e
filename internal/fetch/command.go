package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandProvider runs a local crawler process, passing the date as its last
// argument, and reads a JSON article list from its stdout.
type CommandProvider struct {
	name string
	args []string
}

// NewCommandProvider creates a provider that runs name with args followed by
// the requested date.
func NewCommandProvider(name string, args ...string) *CommandProvider {
	return &CommandProvider{name: name, args: args}
}

// FetchArticles runs the command and decodes its output.
func (p *CommandProvider) FetchArticles(ctx context.Context, date string) ([]RawArticle, error) {
	args := append(append([]string{}, p.args...), date)
	cmd := exec.CommandContext(ctx, p.name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("crawler %s exited with %d: %s",
				p.name, exitErr.ExitCode(), truncate(strings.TrimSpace(stderr.String()), 200))
		}
		return nil, fmt.Errorf("run crawler %s: %w", p.name, err)
	}

	return decodeArticles(out)
}
