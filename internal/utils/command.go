package utils

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

/**
 * Render a command line whose command and arguments are text templates
 * @param {string} command - Executable, may reference template fields
 * @param {[]string} args - Argument templates, e.g. "{{.ConfigPath}}"
 * @param {interface{}} data - Template data
 * @returns {string} Rendered command
 * @returns {[]string} Rendered arguments, empty results are dropped
 */
func GetCommandLine(command string, args []string, data interface{}) (string, []string, error) {
	cmd, err := renderTemplate("command", command, data)
	if err != nil {
		return "", nil, err
	}

	var processedArgs []string
	for _, arg := range args {
		s, err := renderTemplate("arg", arg, data)
		if err != nil {
			return "", nil, fmt.Errorf("arg '%s': %w", arg, err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		processedArgs = append(processedArgs, s)
	}
	return cmd, processedArgs, nil
}

func renderTemplate(name, text string, data interface{}) (string, error) {
	tpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return buf.String(), nil
}
