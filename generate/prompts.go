package generate

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// promptConfig holds the YAML front matter of a prompt file.
type promptConfig struct {
	Task        Task    `yaml:"task"`
	Temperature float64 `yaml:"temperature"`
}

// promptTemplate is a parsed prompt file.
type promptTemplate struct {
	Config   promptConfig
	Template *template.Template
}

// promptData is what prompt templates are rendered with.
type promptData struct {
	Content string
	Count   int
	Words   int
}

// parsePrompt splits a prompt file into front matter and template body.
func parsePrompt(name string, data []byte) (*promptTemplate, error) {
	parts := strings.SplitN(string(data), "---", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%s: missing front matter delimiters", name)
	}

	var config promptConfig
	if err := yaml.Unmarshal([]byte(parts[1]), &config); err != nil {
		return nil, fmt.Errorf("%s: parse front matter: %w", name, err)
	}
	if config.Task == "" {
		return nil, fmt.Errorf("%s: front matter has no task", name)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil, fmt.Errorf("%s: parse template body: %w", name, err)
	}
	return &promptTemplate{Config: config, Template: tmpl}, nil
}

// loadPrompts parses every embedded prompt, keyed by task.
func loadPrompts(fsys fs.FS) (map[Task]*promptTemplate, error) {
	names, err := fs.Glob(fsys, "prompts/*.prompt")
	if err != nil {
		return nil, err
	}
	out := make(map[Task]*promptTemplate, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		p, err := parsePrompt(path.Base(name), data)
		if err != nil {
			return nil, err
		}
		out[p.Config.Task] = p
	}
	for _, task := range Tasks {
		if out[task] == nil {
			return nil, fmt.Errorf("no prompt for task %q", task)
		}
	}
	return out, nil
}

// Execute renders the prompt body.
func (p *promptTemplate) Execute(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := p.Template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s prompt: %w", p.Config.Task, err)
	}
	return buf.String(), nil
}
