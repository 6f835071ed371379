package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vajrock/debugger-mcp/internal/tools"
)

// toolsMarkdown renders the tool catalogue with one parameter table per tool.
func toolsMarkdown(list []tools.Tool) string {
	var sb strings.Builder
	sb.WriteString("# Tools\n\n")
	for _, t := range list {
		fmt.Fprintf(&sb, "- [`%s`](#%s)\n", t.Name(), t.Name())
	}
	for _, t := range list {
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", t.Name(), t.Description())
		rows := parameterRows(t.InputSchema())
		if len(rows) == 0 {
			sb.WriteString("\nNo parameters.\n")
			continue
		}
		sb.WriteString("\n| Parameter | Type | Required | Description |\n")
		sb.WriteString("| :-------- | :--- | :------: | :---------- |\n")
		for _, row := range rows {
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", row[0], row[1], row[2], row[3])
		}
	}
	return sb.String()
}

func parameterRows(schema *jsonschema.Schema) [][4]string {
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	// Required parameters first, then alphabetical.
	slices.SortFunc(names, func(a, b string) int {
		ra, rb := slices.Contains(schema.Required, a), slices.Contains(schema.Required, b)
		if ra != rb {
			if ra {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})

	rows := make([][4]string, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		required := ""
		if slices.Contains(schema.Required, name) {
			required = "✓"
		}
		desc := prop.Description
		if len(prop.Enum) > 0 {
			values := make([]string, 0, len(prop.Enum))
			for _, v := range prop.Enum {
				values = append(values, fmt.Sprintf("`%v`", v))
			}
			desc += " One of " + strings.Join(values, ", ") + "."
		}
		rows = append(rows, [4]string{name, prop.Type, required, strings.ReplaceAll(desc, "|", `\|`)})
	}
	return rows
}
